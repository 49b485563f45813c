/*
scheduler.go - Evaluation history retention

PURPOSE:
  Periodically deletes stored evaluations older than the configured
  retention. Transcripts are student records; they are not kept forever.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Retention of zero disables the scheduler

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Retention:     Maximum age of a stored evaluation

USAGE:
  scheduler := NewRetentionScheduler(service, retention, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - audit/service.go: Prune
  - config/config.go: database.retention
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/curriculum-engine/audit"
)

// DefaultCheckInterval is how often the retention scheduler runs.
const DefaultCheckInterval = time.Hour

// RetentionScheduler prunes old evaluations in the background.
type RetentionScheduler struct {
	Service       *audit.Service
	Retention     time.Duration
	CheckInterval time.Duration

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionScheduler creates a new scheduler.
func NewRetentionScheduler(service *audit.Service, retention time.Duration, logger *zap.Logger) *RetentionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionScheduler{
		Service:       service,
		Retention:     retention,
		CheckInterval: DefaultCheckInterval,
		logger:        logger.Named("retention"),
	}
}

// Start begins the scheduler. It is a no-op without a retention.
func (rs *RetentionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Retention <= 0 {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info("started",
		zap.Duration("interval", rs.CheckInterval),
		zap.Duration("retention", rs.Retention))
}

// Stop stops the scheduler and waits for a running prune to finish.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RetentionScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.prune()

	for {
		select {
		case <-ticker.C:
			rs.prune()
		case <-stop:
			return
		}
	}
}

func (rs *RetentionScheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := rs.Service.Prune(ctx, rs.Retention); err != nil {
		rs.logger.Error("prune failed", zap.Error(err))
	}
}
