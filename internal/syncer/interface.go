// Package syncer reconciles the local FloorSync store with a remote
// server under intermittent connectivity.
//
// The engine collects every unsynced record into one batch, pushes it
// through a Pusher, and clears the unsynced flags only after the remote
// confirms acceptance of the whole batch. A failed or unreachable push
// leaves every flag untouched, so the next attempt retries the same
// work. The design is resilient: AttemptSync never returns a Go error,
// all failures are folded into the Result.
package syncer

import (
	"context"

	"github.com/floorsync/floorsync/internal/models"
)

// Connectivity reports whether the device can currently reach the
// network. Implementations should reflect both link state and actual
// reachability of the remote.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
}

// Batch is the complete set of unsynced records of all three kinds
// collected for one synchronization attempt.
type Batch struct {
	DowntimeEvents   []models.DowntimeEvent   `json:"downtime_events"`
	MaintenanceTasks []models.MaintenanceTask `json:"maintenance_tasks"`
	Alerts           []models.Alert           `json:"alerts"`
}

// Size returns the number of records in the batch. A maintenance task
// counts as one record regardless of how many checklist items it owns.
func (b Batch) Size() int {
	return len(b.DowntimeEvents) + len(b.MaintenanceTasks) + len(b.Alerts)
}

// Empty reports whether the batch holds no records.
func (b Batch) Empty() bool {
	return b.Size() == 0
}

// PushResult is the remote's verdict on a batch. Acceptance is atomic:
// either the whole batch was accepted or none of it was.
type PushResult struct {
	Accepted bool     `json:"accepted"`
	Errors   []string `json:"errors,omitempty"`
}

// Pusher uploads a batch to the remote system.
//
// Implementations must be idempotent under retry: a record that was
// already accepted in a previous attempt may be pushed again (for
// example when a local mark-clean write failed) and must not produce a
// duplicate remotely. Records are single-writer per device; the remote
// applies last-write-wins on re-push.
//
// A transport-level failure is reported through the error return; a
// remote rejection through PushResult.Errors. The engine treats both
// as a failed attempt.
type Pusher interface {
	Push(ctx context.Context, batch Batch) (PushResult, error)
}

// Result is the outcome of one AttemptSync call.
type Result struct {
	Success     bool     `json:"success"`
	SyncedItems int      `json:"synced_items"`
	Skipped     bool     `json:"skipped,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}
