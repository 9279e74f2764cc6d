// Package audit records synchronization attempts for troubleshooting
// flaky connectivity on the floor.
package audit

import (
	"strings"
	"time"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/floorsync/floorsync/internal/store"
)

// Logbook writes sync attempt outcomes to the store's sync log.
type Logbook struct {
	store *store.Store
}

// NewLogbook creates a new sync logbook.
func NewLogbook(s *store.Store) *Logbook {
	return &Logbook{store: s}
}

// Record persists the outcome of one sync attempt.
func (l *Logbook) Record(started, finished time.Time, success bool, syncedItems int, errs []string) (*models.SyncLogEntry, error) {
	return l.store.RecordSyncAttempt(models.SyncLogEntry{
		StartedAt:   started,
		FinishedAt:  finished,
		Success:     success,
		SyncedItems: syncedItems,
		Errors:      strings.Join(errs, "; "),
	})
}

// Last returns the most recent attempt, or nil if none was recorded.
func (l *Logbook) Last() (*models.SyncLogEntry, error) {
	return l.store.LastSyncAttempt()
}
