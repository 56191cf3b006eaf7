package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
	"github.com/grantlab/grantlab-core/internal/core/services"
)

// DefaultSweepInterval is how often the janitor looks for expired state.
const DefaultSweepInterval = 5 * time.Minute

// Pruner removes expired rows from a storage backend that cannot expire
// them on its own.
type Pruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// Janitor sweeps expired sessions and storage rows in the background.
// Expiring a session also releases everything attached to it: an active
// polling run and its per-session lock.
type Janitor struct {
	sessions driven.FlowSessionStore
	poller   driving.DeviceService
	guard    *services.SessionGuard
	pruners  []Pruner
	logger   *slog.Logger

	interval time.Duration

	// Internal state
	mu        sync.RWMutex
	running   bool
	lastSweep time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	Sessions driven.FlowSessionStore
	Poller   driving.DeviceService
	Guard    *services.SessionGuard

	// Pruners are swept alongside sessions (optional)
	Pruners []Pruner

	// Interval between sweeps (default: 5m)
	Interval time.Duration

	Logger *slog.Logger
}

// NewJanitor creates a new cleanup janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		sessions: cfg.Sessions,
		poller:   cfg.Poller,
		guard:    cfg.Guard,
		pruners:  cfg.Pruners,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "interval", j.interval)

	go j.sweepLoop(ctx)
	return nil
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// sweepLoop runs sweeps on the interval until stopped.
func (j *Janitor) sweepLoop(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Exported so a composition root can force
// a pass at startup.
func (j *Janitor) Sweep(ctx context.Context) {
	start := time.Now()

	ids, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("expired session sweep failed", "error", err)
	}
	for _, id := range ids {
		// Stop any polling run still attached to the dead session and
		// drop its lock entry.
		if j.poller != nil {
			if err := j.poller.StopPolling(ctx, id); err != nil {
				j.logger.Warn("stopping polling for expired session failed",
					"session_id", id, "error", err)
			}
		}
		if j.guard != nil {
			j.guard.Forget(id)
		}
	}

	var pruned int64
	for _, pruner := range j.pruners {
		n, err := pruner.PruneExpired(ctx)
		if err != nil {
			j.logger.Error("artifact prune failed", "error", err)
			continue
		}
		pruned += n
	}

	j.mu.Lock()
	j.lastSweep = time.Now()
	j.mu.Unlock()

	if len(ids) > 0 || pruned > 0 {
		j.logger.Info("sweep finished",
			"expired_sessions", len(ids),
			"pruned_artifacts", pruned,
			"duration", time.Since(start))
	}
}

// Health reports the janitor's state.
type Health struct {
	Running     bool       `json:"running"`
	LastSweepAt *time.Time `json:"last_sweep_at,omitempty"`
}

// Health returns the health status of the janitor.
func (j *Janitor) Health() Health {
	j.mu.RLock()
	defer j.mu.RUnlock()

	health := Health{Running: j.running}
	if !j.lastSweep.IsZero() {
		t := j.lastSweep
		health.LastSweepAt = &t
	}
	return health
}
