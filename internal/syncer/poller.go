package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/floorsync/floorsync/internal/store"
	"github.com/rs/zerolog"
)

// Poller drives the engine in the background: a fast ticker keeps the
// tracker's connectivity and pending counters fresh, a slower one
// triggers sync attempts. Manual "sync now" triggers and these ticks
// all funnel through Engine.AttemptSync, so overlapping triggers
// collapse into a single in-flight attempt.
type Poller struct {
	engine       *Engine
	store        *store.Store
	connectivity Connectivity
	tracker      *Tracker
	log          zerolog.Logger

	statusInterval time.Duration
	syncInterval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller. Non-positive intervals fall back to
// 30 seconds for status checks and 5 minutes for sync attempts.
func NewPoller(engine *Engine, s *store.Store, conn Connectivity, tracker *Tracker, log zerolog.Logger, statusInterval, syncInterval time.Duration) *Poller {
	if statusInterval <= 0 {
		statusInterval = 30 * time.Second
	}
	if syncInterval <= 0 {
		syncInterval = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		engine:         engine,
		store:          s,
		connectivity:   conn,
		tracker:        tracker,
		log:            log,
		statusInterval: statusInterval,
		syncInterval:   syncInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.loop()
	p.log.Info().
		Dur("status_interval", p.statusInterval).
		Dur("sync_interval", p.syncInterval).
		Msg("sync poller started")
}

// Stop cancels the loop and waits for it to exit. An in-flight sync
// attempt is left to finish; its result is ignored.
func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
	p.log.Info().Msg("sync poller stopped")
}

func (p *Poller) loop() {
	defer p.wg.Done()

	statusTicker := time.NewTicker(p.statusInterval)
	defer statusTicker.Stop()
	syncTicker := time.NewTicker(p.syncInterval)
	defer syncTicker.Stop()

	// Prime the tracker so consumers see real state before the first tick.
	p.refreshStatus()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-statusTicker.C:
			p.refreshStatus()
		case <-syncTicker.C:
			result := p.engine.AttemptSync(p.ctx)
			if result.Skipped {
				continue
			}
			if !result.Success {
				p.log.Debug().Strs("errors", result.Errors).Msg("periodic sync attempt failed")
			}
		}
	}
}

// refreshStatus polls connectivity and the pending count into the tracker.
func (p *Poller) refreshStatus() {
	p.tracker.SetOnline(p.connectivity.IsConnected(p.ctx))
	n, err := p.store.PendingSyncCount()
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to count pending records")
		return
	}
	p.tracker.SetPending(n)
}
