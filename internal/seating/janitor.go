package seating

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultSweepInterval = 15 * time.Second

// Janitor periodically drops holds whose deadline passed without the
// countdown releasing them, such as checkouts that were never paid.
type Janitor struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewJanitor(registry *Registry, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Janitor{
		registry: registry,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called. It returns at once when
// the janitor already ran or was stopped.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.started || j.stopped {
		j.mu.Unlock()
		return
	}
	j.started = true
	j.mu.Unlock()

	j.logger.Info("hold janitor started", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer close(j.doneCh)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("hold janitor stopped", "reason", ctx.Err())
			return
		case <-j.stopCh:
			j.logger.Info("hold janitor stopped")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// Stop ends a running janitor and waits for it. Stopping twice, or stopping a
// janitor that never started, does nothing.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	started := j.started
	j.mu.Unlock()

	close(j.stopCh)

	if started {
		<-j.doneCh
	}
}

func (j *Janitor) sweep() {
	count := j.registry.Sweep()
	if count > 0 {
		j.logger.Info("swept expired seat holds", "count", count)
	} else {
		j.logger.Debug("no expired seat holds")
	}
}
