package syncer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/floorsync/floorsync/internal/audit"
	"github.com/floorsync/floorsync/internal/models"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/rs/zerolog"
)

// fakeConnectivity reports a fixed connectivity state.
type fakeConnectivity struct {
	mu        sync.Mutex
	connected bool
}

func (f *fakeConnectivity) IsConnected(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConnectivity) set(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

// fakePusher records batches and returns a canned result. When block
// is set, Push parks on it until released, signalling entry on entered.
type fakePusher struct {
	mu      sync.Mutex
	calls   int
	batches []Batch
	result  PushResult
	err     error

	entered chan struct{}
	block   chan struct{}
}

func (f *fakePusher) Push(ctx context.Context, batch Batch) (PushResult, error) {
	f.mu.Lock()
	f.calls++
	f.batches = append(f.batches, batch)
	entered, block := f.entered, f.block
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	return f.result, f.err
}

func (f *fakePusher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEngine(t *testing.T, conn *fakeConnectivity, pusher *fakePusher) (*Engine, *store.Store, *Tracker) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tracker := NewTracker()
	engine := NewEngine(s, conn, pusher, tracker, audit.NewLogbook(s), zerolog.Nop(), time.Second)
	return engine, s, tracker
}

func seedDirtyRecords(t *testing.T, s *store.Store) (eventID, taskID, alertID string) {
	t.Helper()
	ev, err := s.CreateDowntimeEvent(store.NewDowntimeEvent{
		OperatorID: "op-1", EquipmentID: "eq-1", EquipmentName: "Machine A", Reason: "Mechanical Failure",
	})
	if err != nil {
		t.Fatalf("seed downtime: %v", err)
	}
	task, err := s.CreateMaintenanceTask(store.NewMaintenanceTask{
		OperatorID: "op-1", EquipmentID: "eq-1", ChecklistID: "cl-1",
	}, []string{"Step"})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	alert, err := s.CreateAlert(store.NewAlert{
		Type: models.AlertSystem, Severity: models.SeverityLow, Title: "T", Message: "m",
	})
	if err != nil {
		t.Fatalf("seed alert: %v", err)
	}
	return ev.ID, task.ID, alert.ID
}

func TestAttemptSyncNoConnectivity(t *testing.T) {
	conn := &fakeConnectivity{connected: false}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	engine, s, tracker := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	result := engine.AttemptSync(context.Background())

	if result.Success {
		t.Error("Expected failure without connectivity")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "no connectivity" {
		t.Errorf("Expected [no connectivity], got %v", result.Errors)
	}
	if pusher.callCount() != 0 {
		t.Error("Push should not be attempted while offline")
	}

	n, _ := s.PendingSyncCount()
	if n != 3 {
		t.Errorf("Dirty flags must be untouched, expected 3 pending, got %d", n)
	}
	if tracker.Status().IsOnline {
		t.Error("Tracker should report offline")
	}
}

func TestAttemptSyncSuccess(t *testing.T) {
	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	engine, s, tracker := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	result := engine.AttemptSync(context.Background())

	if !result.Success {
		t.Fatalf("Expected success, got errors %v", result.Errors)
	}
	if result.SyncedItems != 3 {
		t.Errorf("Expected 3 synced items, got %d", result.SyncedItems)
	}
	if pusher.callCount() != 1 {
		t.Errorf("Expected exactly one push, got %d", pusher.callCount())
	}
	if got := pusher.batches[0].Size(); got != 3 {
		t.Errorf("Expected batch of 3, got %d", got)
	}

	n, _ := s.PendingSyncCount()
	if n != 0 {
		t.Errorf("Expected 0 pending after success, got %d", n)
	}

	status := tracker.Status()
	if status.PendingItems != 0 {
		t.Errorf("Tracker pending should recompute to 0, got %d", status.PendingItems)
	}
	if status.LastSyncTime == nil {
		t.Error("LastSyncTime should be set after success")
	}
	if !status.IsOnline {
		t.Error("Tracker should report online")
	}

	last, _ := s.LastSyncAttempt()
	if last == nil || !last.Success || last.SyncedItems != 3 {
		t.Errorf("Sync log should record the attempt, got %+v", last)
	}
}

func TestAttemptSyncRemoteRejection(t *testing.T) {
	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{result: PushResult{Accepted: false, Errors: []string{"validation failed"}}}
	engine, s, _ := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	result := engine.AttemptSync(context.Background())

	if result.Success {
		t.Error("Expected failure on rejection")
	}
	if result.SyncedItems != 0 {
		t.Errorf("Expected 0 synced items, got %d", result.SyncedItems)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "validation failed" {
		t.Errorf("Expected remote errors surfaced, got %v", result.Errors)
	}

	n, _ := s.PendingSyncCount()
	if n != 3 {
		t.Errorf("All records must stay dirty after rejection, got %d pending", n)
	}
}

func TestAttemptSyncEmptyBatchFastPath(t *testing.T) {
	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	engine, _, _ := newTestEngine(t, conn, pusher)

	result := engine.AttemptSync(context.Background())

	if !result.Success || result.SyncedItems != 0 {
		t.Errorf("Expected success with 0 items, got %+v", result)
	}
	if pusher.callCount() != 0 {
		t.Error("Empty batch must not reach the remote")
	}
}

func TestAttemptSyncIdempotentAfterSuccess(t *testing.T) {
	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	engine, s, _ := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	first := engine.AttemptSync(context.Background())
	if !first.Success || first.SyncedItems != 3 {
		t.Fatalf("First sync should upload 3 items, got %+v", first)
	}

	second := engine.AttemptSync(context.Background())
	if !second.Success || second.SyncedItems != 0 {
		t.Errorf("Second sync should be an empty fast path, got %+v", second)
	}
	if pusher.callCount() != 1 {
		t.Errorf("Expected a single push across both attempts, got %d", pusher.callCount())
	}
}

func TestAttemptSyncDropsOverlappingCalls(t *testing.T) {
	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{
		result:  PushResult{Accepted: true},
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	engine, s, _ := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	var wg sync.WaitGroup
	var firstResult Result
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstResult = engine.AttemptSync(context.Background())
	}()

	// Wait until the first attempt is parked inside Push, then trigger
	// a second attempt.
	<-pusher.entered
	second := engine.AttemptSync(context.Background())
	if !second.Skipped {
		t.Errorf("Overlapping call should be dropped, got %+v", second)
	}

	close(pusher.block)
	wg.Wait()

	if !firstResult.Success || firstResult.SyncedItems != 3 {
		t.Errorf("First attempt should complete normally, got %+v", firstResult)
	}
	if pusher.callCount() != 1 {
		t.Errorf("Expected exactly one push, got %d", pusher.callCount())
	}
}

func TestAttemptSyncRecoversOnNextAttempt(t *testing.T) {
	conn := &fakeConnectivity{connected: false}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	engine, s, _ := newTestEngine(t, conn, pusher)
	seedDirtyRecords(t, s)

	if result := engine.AttemptSync(context.Background()); result.Success {
		t.Fatal("Expected offline failure")
	}

	conn.set(true)
	result := engine.AttemptSync(context.Background())
	if !result.Success || result.SyncedItems != 3 {
		t.Errorf("Expected retry to upload the same batch, got %+v", result)
	}
}
