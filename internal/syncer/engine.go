package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/floorsync/floorsync/internal/audit"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/rs/zerolog"
)

// DefaultPushTimeout bounds a single remote push.
const DefaultPushTimeout = 30 * time.Second

// Engine orchestrates synchronization attempts. At most one attempt is
// in flight per process; re-entrant calls are dropped, not queued.
type Engine struct {
	store        *store.Store
	connectivity Connectivity
	pusher       Pusher
	tracker      *Tracker
	logbook      *audit.Logbook
	log          zerolog.Logger
	pushTimeout  time.Duration

	mu      sync.Mutex
	syncing bool
}

// NewEngine creates a sync engine. A zero pushTimeout falls back to
// DefaultPushTimeout.
func NewEngine(s *store.Store, conn Connectivity, pusher Pusher, tracker *Tracker, logbook *audit.Logbook, log zerolog.Logger, pushTimeout time.Duration) *Engine {
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &Engine{
		store:        s,
		connectivity: conn,
		pusher:       pusher,
		tracker:      tracker,
		logbook:      logbook,
		log:          log,
		pushTimeout:  pushTimeout,
	}
}

// AttemptSync performs one synchronization attempt and always returns
// a Result; no error escapes it. If an attempt is already in flight
// the call returns immediately with Skipped set.
func (e *Engine) AttemptSync(ctx context.Context) Result {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{Skipped: true}
	}
	e.syncing = true
	e.mu.Unlock()

	e.tracker.SetSyncing(true)
	defer func() {
		e.tracker.SetSyncing(false)
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	started := time.Now().UTC()

	if !e.connectivity.IsConnected(ctx) {
		e.tracker.SetOnline(false)
		e.log.Debug().Msg("sync skipped, no connectivity")
		return e.finish(started, Result{Success: false, Errors: []string{"no connectivity"}}, false)
	}
	e.tracker.SetOnline(true)

	batch, err := e.collectBatch()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to collect unsynced records")
		return e.finish(started, Result{Success: false, Errors: []string{err.Error()}}, true)
	}

	// Fast path: nothing to upload, no remote call.
	if batch.Empty() {
		e.refreshPending()
		return Result{Success: true, SyncedItems: 0}
	}

	pushCtx, cancel := context.WithTimeout(ctx, e.pushTimeout)
	defer cancel()

	res, err := e.pusher.Push(pushCtx, batch)
	if err != nil {
		e.log.Warn().Err(err).Int("batch_size", batch.Size()).Msg("push failed")
		return e.finish(started, Result{Success: false, Errors: []string{err.Error()}}, true)
	}
	if !res.Accepted {
		e.log.Warn().Strs("errors", res.Errors).Int("batch_size", batch.Size()).Msg("push rejected by remote")
		return e.finish(started, Result{Success: false, Errors: res.Errors}, true)
	}

	// Best-effort mark-clean. A record whose mark-clean write fails
	// stays unsynced and is re-pushed on the next attempt; the remote
	// push contract makes that retry idempotent.
	e.markBatchSynced(batch)

	e.tracker.RecordSuccess(time.Now().UTC())
	result := Result{Success: true, SyncedItems: batch.Size()}
	e.log.Info().Int("synced_items", result.SyncedItems).Msg("sync complete")
	return e.finish(started, result, true)
}

// collectBatch gathers the authoritative work list for this attempt.
func (e *Engine) collectBatch() (Batch, error) {
	events, err := e.store.UnsyncedDowntimeEvents()
	if err != nil {
		return Batch{}, err
	}
	tasks, err := e.store.UnsyncedMaintenanceTasks()
	if err != nil {
		return Batch{}, err
	}
	alerts, err := e.store.UnsyncedAlerts()
	if err != nil {
		return Batch{}, err
	}
	return Batch{DowntimeEvents: events, MaintenanceTasks: tasks, Alerts: alerts}, nil
}

func (e *Engine) markBatchSynced(batch Batch) {
	for _, ev := range batch.DowntimeEvents {
		if err := e.store.MarkDowntimeEventSynced(ev.ID); err != nil {
			e.log.Warn().Err(err).Str("id", ev.ID).Msg("failed to mark downtime event synced")
		}
	}
	for _, task := range batch.MaintenanceTasks {
		if err := e.store.MarkMaintenanceTaskSynced(task.ID); err != nil {
			e.log.Warn().Err(err).Str("id", task.ID).Msg("failed to mark maintenance task synced")
		}
	}
	for _, alert := range batch.Alerts {
		if err := e.store.MarkAlertSynced(alert.ID); err != nil {
			e.log.Warn().Err(err).Str("id", alert.ID).Msg("failed to mark alert synced")
		}
	}
}

// finish refreshes the pending counter, optionally records the attempt
// in the sync log, and returns the result unchanged.
func (e *Engine) finish(started time.Time, result Result, logAttempt bool) Result {
	e.refreshPending()
	if logAttempt && e.logbook != nil {
		if _, err := e.logbook.Record(started, time.Now().UTC(), result.Success, result.SyncedItems, result.Errors); err != nil {
			e.log.Warn().Err(err).Msg("failed to record sync attempt")
		}
	}
	return result
}

func (e *Engine) refreshPending() {
	n, err := e.store.PendingSyncCount()
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to count pending records")
		return
	}
	e.tracker.SetPending(n)
}
