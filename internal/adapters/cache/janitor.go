package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/core"
)

// Janitor periodically evicts expired entries from one or more cache tiers.
// It is decoupled from in-flight scans: it only deletes expired rows and
// each tier keeps its critical sections short. Stop cancels the loop; tests
// call RunOnce for a deterministic sweep.
type Janitor struct {
	caches   []core.AnalysisCache
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewJanitor creates a janitor over the given cache tiers.
func NewJanitor(caches []core.AnalysisCache, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		caches:   caches,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (j *Janitor) Start() {
	go func() {
		defer close(j.doneCh)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.RunOnce(context.Background())
			case <-j.stopCh:
				return
			}
		}
	}()
}

// RunOnce performs one sweep over all tiers.
func (j *Janitor) RunOnce(ctx context.Context) {
	for _, c := range j.caches {
		if err := c.Cleanup(ctx); err != nil {
			j.logger.Error("cache cleanup failed", zap.Error(err))
		}
	}
}

// Stop cancels the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stopCh)
	<-j.doneCh
}
