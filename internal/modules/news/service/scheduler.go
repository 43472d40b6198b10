package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is one sync pass
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Scheduler runs the sync job immediately and then every interval.
// Runs never overlap; a failed run is logged and retried on the next tick.
type Scheduler struct {
	runner   Runner
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastRun time.Time
}

// NewScheduler creates a scheduler for runner
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
	}
}

// Start begins the loop. It is a no-op when the interval is not positive or
// the scheduler already runs.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("News sync scheduler disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels the loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Last reports when the previous run finished and how it ended
func (s *Scheduler) Last() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.ErrorContext(ctx, "News sync failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "News sync finished",
		"fetched", result.Fetched,
		"matched", result.Matched,
		"images", result.Images,
		"total", result.Total,
	)
}
