package syncer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/floorsync/floorsync/internal/audit"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/rs/zerolog"
)

func TestPollerTriggersSyncAndRefreshesStatus(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := s.CreateDowntimeEvent(store.NewDowntimeEvent{
		OperatorID: "op-1", EquipmentID: "eq-1", Reason: "Jam",
	}); err != nil {
		t.Fatalf("seed downtime: %v", err)
	}

	conn := &fakeConnectivity{connected: true}
	pusher := &fakePusher{result: PushResult{Accepted: true}}
	tracker := NewTracker()
	engine := NewEngine(s, conn, pusher, tracker, audit.NewLogbook(s), zerolog.Nop(), time.Second)

	poller := NewPoller(engine, s, conn, tracker, zerolog.Nop(), 10*time.Millisecond, 20*time.Millisecond)
	poller.Start()
	defer poller.Stop()

	deadline := time.After(2 * time.Second)
	for pusher.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Poller never triggered a sync attempt")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The status ticker must have observed connectivity by now.
	for !tracker.Status().IsOnline {
		select {
		case <-deadline:
			t.Fatal("Poller never refreshed connectivity state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPollerStopIsClean(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	conn := &fakeConnectivity{connected: false}
	pusher := &fakePusher{}
	tracker := NewTracker()
	engine := NewEngine(s, conn, pusher, tracker, audit.NewLogbook(s), zerolog.Nop(), time.Second)

	poller := NewPoller(engine, s, conn, tracker, zerolog.Nop(), 10*time.Millisecond, 10*time.Millisecond)
	poller.Start()
	time.Sleep(30 * time.Millisecond)
	poller.Stop()

	// Stop must wait for the loop; no ticks should fire afterwards.
	calls := pusher.callCount()
	time.Sleep(30 * time.Millisecond)
	if pusher.callCount() != calls {
		t.Error("Poller kept running after Stop")
	}
}
