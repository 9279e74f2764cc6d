// Package api provides the local HTTP API that UI clients consume:
// record capture and queries, dashboard stats, sync status, and the
// manual sync trigger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/floorsync/floorsync/internal/auth"
	"github.com/floorsync/floorsync/internal/models"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/floorsync/floorsync/internal/syncer"
	"github.com/rs/zerolog"
)

// Server provides the HTTP API for FloorSync.
type Server struct {
	store   *store.Store
	engine  *syncer.Engine
	tracker *syncer.Tracker
	auth    *auth.Manager
	log     zerolog.Logger
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(s *store.Store, engine *syncer.Engine, tracker *syncer.Tracker, authMgr *auth.Manager, log zerolog.Logger, addr string) *Server {
	return &Server{
		store:   s,
		engine:  engine,
		tracker: tracker,
		auth:    authMgr,
		log:     log,
		addr:    addr,
	}
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info().Str("addr", s.addr).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/login", s.handleLogin)

	mux.HandleFunc("/downtime", s.handleDowntime)
	mux.HandleFunc("/downtime/", s.handleDowntimeByID)
	mux.HandleFunc("/maintenance", s.handleMaintenance)
	mux.HandleFunc("/maintenance/", s.handleMaintenanceByID)
	mux.HandleFunc("/alerts", s.handleAlerts)
	mux.HandleFunc("/alerts/", s.handleAlertByID)

	return mux
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	OK   bool   `json:"ok"`
	DB   string `json:"db"`
	Time string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{OK: true, DB: "ok", Time: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		health.OK = false
		health.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Status())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result := s.engine.AttemptSync(r.Context())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// --- Downtime Handlers ---

type createDowntimeRequest struct {
	OperatorID    string     `json:"operator_id"`
	EquipmentID   string     `json:"equipment_id"`
	EquipmentName string     `json:"equipment_name"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	Reason        string     `json:"reason"`
	Description   string     `json:"description,omitempty"`
}

func (s *Server) handleDowntime(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createDowntimeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.OperatorID == "" || req.EquipmentID == "" || req.Reason == "" {
			http.Error(w, "operator_id, equipment_id and reason are required", http.StatusBadRequest)
			return
		}
		nev := store.NewDowntimeEvent{
			OperatorID:    req.OperatorID,
			EquipmentID:   req.EquipmentID,
			EquipmentName: req.EquipmentName,
			Reason:        req.Reason,
			Description:   req.Description,
		}
		if req.StartTime != nil {
			nev.StartTime = *req.StartTime
		}
		ev, err := s.store.CreateDowntimeEvent(nev)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ev)

	case http.MethodGet:
		f := store.DowntimeFilter{
			OperatorID: r.URL.Query().Get("operator"),
			Status:     models.DowntimeStatus(r.URL.Query().Get("status")),
			Unsynced:   r.URL.Query().Get("unsynced") == "true",
			Limit:      queryInt(r, "limit"),
		}
		events, err := s.store.ListDowntimeEvents(f)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type resolveDowntimeRequest struct {
	EndTime *time.Time `json:"end_time,omitempty"`
}

func (s *Server) handleDowntimeByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/downtime/")
	if id == "" {
		http.Error(w, "event id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ev, err := s.store.GetDowntimeEvent(id)
		if err != nil {
			s.fail(w, err)
			return
		}
		if ev == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ev)

	case action == "" && r.Method == http.MethodPatch:
		var patch models.DowntimeEventPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.store.UpdateDowntimeEvent(id, patch); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "resolve" && r.Method == http.MethodPost:
		var req resolveDowntimeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		end := time.Now().UTC()
		if req.EndTime != nil {
			end = req.EndTime.UTC()
		}
		resolved := models.DowntimeResolved
		patch := models.DowntimeEventPatch{Status: &resolved, EndTime: &end}
		if err := s.store.UpdateDowntimeEvent(id, patch); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Maintenance Handlers ---

type createMaintenanceRequest struct {
	OperatorID    string   `json:"operator_id"`
	EquipmentID   string   `json:"equipment_id"`
	EquipmentName string   `json:"equipment_name"`
	ChecklistID   string   `json:"checklist_id"`
	ChecklistName string   `json:"checklist_name"`
	Items         []string `json:"items"`
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createMaintenanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.OperatorID == "" || req.EquipmentID == "" || req.ChecklistID == "" {
			http.Error(w, "operator_id, equipment_id and checklist_id are required", http.StatusBadRequest)
			return
		}
		task, err := s.store.CreateMaintenanceTask(store.NewMaintenanceTask{
			OperatorID:    req.OperatorID,
			EquipmentID:   req.EquipmentID,
			EquipmentName: req.EquipmentName,
			ChecklistID:   req.ChecklistID,
			ChecklistName: req.ChecklistName,
		}, req.Items)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)

	case http.MethodGet:
		f := store.MaintenanceFilter{
			OperatorID: r.URL.Query().Get("operator"),
			Status:     models.MaintenanceStatus(r.URL.Query().Get("status")),
			Unsynced:   r.URL.Query().Get("unsynced") == "true",
			Limit:      queryInt(r, "limit"),
		}
		tasks, err := s.store.ListMaintenanceTasks(f)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMaintenanceByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/maintenance/")
	if id == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	// /maintenance/items/{itemID} patches a checklist item.
	if id == "items" {
		if action == "" || r.Method != http.MethodPatch {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var patch models.ChecklistItemPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.store.UpdateChecklistItem(action, patch); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		task, err := s.store.GetMaintenanceTask(id)
		if err != nil {
			s.fail(w, err)
			return
		}
		if task == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, task)

	case action == "" && r.Method == http.MethodPatch:
		var patch models.MaintenanceTaskPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.store.UpdateMaintenanceTask(id, patch); err != nil {
			s.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Alert Handlers ---

type createAlertRequest struct {
	Type      models.AlertType     `json:"type"`
	Severity  models.AlertSeverity `json:"severity"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	RelatedID string               `json:"related_id,omitempty"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createAlertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		alert, err := s.store.CreateAlert(store.NewAlert{
			Type:      req.Type,
			Severity:  req.Severity,
			Title:     req.Title,
			Message:   req.Message,
			RelatedID: req.RelatedID,
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, alert)

	case http.MethodGet:
		f := store.AlertFilter{
			Unsynced: r.URL.Query().Get("unsynced") == "true",
			Limit:    queryInt(r, "limit"),
		}
		if v := r.URL.Query().Get("acknowledged"); v != "" {
			ack := v == "true"
			f.Acknowledged = &ack
		}
		alerts, err := s.store.ListAlerts(f)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, alerts)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type ackAlertRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

func (s *Server) handleAlertByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/alerts/")
	if id == "" {
		http.Error(w, "alert id required", http.StatusBadRequest)
		return
	}

	if action != "ack" || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req ackAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.AcknowledgedBy == "" {
		http.Error(w, "acknowledged_by is required", http.StatusBadRequest)
		return
	}
	if err := s.store.AcknowledgeAlert(id, req.AcknowledgedBy); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// fail maps store errors onto HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrChecklistIncomplete):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrEndTimeRequired),
		errors.Is(err, store.ErrEndTimeBeforeStart),
		errors.Is(err, store.ErrEndTimeOnActive):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// splitPath extracts "{id}" and an optional trailing "{action}" from a
// path like prefix + "{id}/{action}".
func splitPath(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) > 1 {
		action = strings.TrimSuffix(parts[1], "/")
	}
	return id, action
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
