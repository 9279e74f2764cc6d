package syncer

import (
	"sync"
	"time"

	"github.com/floorsync/floorsync/internal/models"
)

// Tracker holds the process-wide observable sync state. It starts
// offline with nothing pending; the engine and poller are its only
// writers, everything else reads snapshots via Status.
type Tracker struct {
	mu     sync.RWMutex
	status models.SyncStatus
}

// NewTracker returns a tracker in the initial offline state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Status returns a snapshot of the current sync state.
func (t *Tracker) Status() models.SyncStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SetOnline records the latest connectivity check result.
func (t *Tracker) SetOnline(online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.IsOnline = online
}

// SetPending records the current count of unsynced records.
func (t *Tracker) SetPending(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.PendingItems = n
}

// SetSyncing flips the in-progress flag around a sync attempt.
func (t *Tracker) SetSyncing(syncing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Syncing = syncing
}

// RecordSuccess stamps the last successful sync time.
func (t *Tracker) RecordSuccess(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastSyncTime = &at
}
