/*
scheduler.go - Periodic refresh scheduler

PURPOSE:
  Re-fetches the working set on a fixed interval as a safety net for
  backends whose change notification can miss events (the remote poll
  only fingerprints id and date).

USAGE:
  sched := NewRefreshScheduler(svc, logger)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - trips.go: TripService.Refresh
*/
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RefreshScheduler periodically refreshes a TripService.
type RefreshScheduler struct {
	Service       *TripService
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a scheduler with a 10 minute interval.
func NewRefreshScheduler(svc *TripService, logger *slog.Logger) *RefreshScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshScheduler{
		Service:       svc,
		CheckInterval: 10 * time.Minute,
		Enabled:       true,
		logger:        logger.With("component", "scheduler"),
		stop:          make(chan struct{}),
	}
}

// Start begins the background refresh loop.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logger.Info("scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	rs.logger.Info("scheduler started", "interval", rs.CheckInterval)
}

// Stop halts the loop and waits for it to exit.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.logger.Info("scheduler stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := rs.Service.Refresh(ctx); err != nil {
				rs.logger.Warn("scheduled refresh failed", "error", err)
			}
			cancel()
		case <-rs.stop:
			return
		}
	}
}

// RunNow triggers an immediate refresh (admin/testing).
func (rs *RefreshScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := rs.Service.Refresh(ctx); err != nil {
		rs.logger.Warn("manual refresh failed", "error", err)
	}
}
