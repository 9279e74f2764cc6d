package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/floorsync/floorsync/internal/audit"
	"github.com/floorsync/floorsync/internal/auth"
	"github.com/floorsync/floorsync/internal/models"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/floorsync/floorsync/internal/syncer"
	"github.com/rs/zerolog"
)

type stubConnectivity struct{ connected bool }

func (c stubConnectivity) IsConnected(ctx context.Context) bool { return c.connected }

type stubPusher struct{ result syncer.PushResult }

func (p stubPusher) Push(ctx context.Context, batch syncer.Batch) (syncer.PushResult, error) {
	return p.result, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.SeedUsers(); err != nil {
		t.Fatalf("SeedUsers failed: %v", err)
	}

	tracker := syncer.NewTracker()
	engine := syncer.NewEngine(s, stubConnectivity{connected: true}, stubPusher{result: syncer.PushResult{Accepted: true}},
		tracker, audit.NewLogbook(s), zerolog.Nop(), time.Second)
	srv := NewServer(s, engine, tracker, auth.NewManager(s), zerolog.Nop(), "127.0.0.1:0")
	return srv, s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.routes(), http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !health.OK || health.DB != "ok" {
		t.Errorf("Unexpected health payload: %+v", health)
	}
}

func TestDowntimeCreateAndResolve(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodPost, "/downtime", map[string]string{
		"operator_id":    "op-1",
		"equipment_id":   "eq-1",
		"equipment_name": "Machine A",
		"reason":         "Mechanical Failure",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var ev models.DowntimeEvent
	if err := json.NewDecoder(w.Body).Decode(&ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Status != models.DowntimeActive || ev.Synced {
		t.Errorf("Unexpected new event: %+v", ev)
	}

	end := time.Now().UTC()
	w = doJSON(t, h, http.MethodPost, "/downtime/"+ev.ID+"/resolve", map[string]time.Time{"end_time": end})
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/downtime/"+ev.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got models.DowntimeEvent
	json.NewDecoder(w.Body).Decode(&got)
	if got.Status != models.DowntimeResolved || got.EndTime == nil {
		t.Errorf("Expected resolved event with end time, got %+v", got)
	}
}

func TestDowntimeValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	// Missing required fields.
	w := doJSON(t, h, http.MethodPost, "/downtime", map[string]string{"operator_id": "op-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	// Unknown id on patch.
	reason := "Jam"
	w = doJSON(t, h, http.MethodPatch, "/downtime/missing", models.DowntimeEventPatch{Reason: &reason})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	// Unknown id on get.
	w = doJSON(t, h, http.MethodGet, "/downtime/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestMaintenanceCompletionConflict(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodPost, "/maintenance", map[string]interface{}{
		"operator_id":    "op-1",
		"equipment_id":   "eq-1",
		"equipment_name": "Press 3",
		"checklist_id":   "cl-1",
		"checklist_name": "Weekly lubrication",
		"items":          []string{"Check oil", "Grease bearings"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var task models.MaintenanceTask
	json.NewDecoder(w.Body).Decode(&task)

	completed := models.MaintenanceCompleted
	w = doJSON(t, h, http.MethodPatch, "/maintenance/"+task.ID, models.MaintenanceTaskPatch{Status: &completed})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while items unchecked, got %d", w.Code)
	}

	checked := true
	for _, item := range task.Items {
		w = doJSON(t, h, http.MethodPatch, "/maintenance/items/"+item.ID, models.ChecklistItemPatch{Checked: &checked})
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204 on item patch, got %d", w.Code)
		}
	}

	w = doJSON(t, h, http.MethodPatch, "/maintenance/"+task.ID, models.MaintenanceTaskPatch{Status: &completed})
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 after checking all items, got %d: %s", w.Code, w.Body.String())
	}

	got, _ := s.GetMaintenanceTask(task.ID)
	if got.Status != models.MaintenanceCompleted {
		t.Errorf("Expected completed status, got %s", got.Status)
	}
}

func TestAlertAcknowledge(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodPost, "/alerts", map[string]string{
		"type":     "downtime",
		"severity": "high",
		"title":    "Machine A down",
		"message":  "Extended downtime",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var alert models.Alert
	json.NewDecoder(w.Body).Decode(&alert)

	w = doJSON(t, h, http.MethodPost, "/alerts/"+alert.ID+"/ack", map[string]string{"acknowledged_by": "supervisor1"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/alerts?acknowledged=true", nil)
	var alerts []models.Alert
	json.NewDecoder(w.Body).Decode(&alerts)
	if len(alerts) != 1 || alerts[0].AcknowledgedBy != "supervisor1" {
		t.Errorf("Expected acknowledged alert, got %+v", alerts)
	}
}

func TestSyncEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.routes()

	if _, err := s.CreateDowntimeEvent(store.NewDowntimeEvent{
		OperatorID: "op-1", EquipmentID: "eq-1", Reason: "Jam",
	}); err != nil {
		t.Fatalf("seed downtime: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var result syncer.Result
	json.NewDecoder(w.Body).Decode(&result)
	if !result.Success || result.SyncedItems != 1 {
		t.Errorf("Expected successful sync of 1 item, got %+v", result)
	}

	w = doJSON(t, h, http.MethodGet, "/status", nil)
	var status models.SyncStatus
	json.NewDecoder(w.Body).Decode(&status)
	if status.PendingItems != 0 {
		t.Errorf("Expected 0 pending after sync, got %d", status.PendingItems)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.routes()

	s.CreateDowntimeEvent(store.NewDowntimeEvent{OperatorID: "op-1", EquipmentID: "eq-1", Reason: "Jam"})

	w := doJSON(t, h, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var stats models.DashboardStats
	json.NewDecoder(w.Body).Decode(&stats)
	if stats.ActiveDowntime != 1 {
		t.Errorf("Expected 1 active downtime, got %d", stats.ActiveDowntime)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodPost, "/login", map[string]string{
		"username": "operator1", "password": "operator123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var user models.User
	json.NewDecoder(w.Body).Decode(&user)
	if user.Username != "operator1" {
		t.Errorf("Unexpected user: %+v", user)
	}

	w = doJSON(t, h, http.MethodPost, "/login", map[string]string{
		"username": "operator1", "password": "nope",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}
