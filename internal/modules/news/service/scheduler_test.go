package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	err      error
}

func (r *countingRunner) Run(ctx context.Context) (Result, error) {
	if r.inFlight.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.inFlight.Add(-1)
	r.calls.Add(1)
	time.Sleep(2 * time.Millisecond)
	return Result{}, r.err
}

func TestSchedulerRunsRepeatedly(t *testing.T) {
	runner := &countingRunner{err: errors.New("upstream down")}
	s := NewScheduler(runner, 5*time.Millisecond)
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	if n := runner.calls.Load(); n < 3 {
		t.Fatalf("ran %d times, want at least 3", n)
	}
	if runner.overlap.Load() {
		t.Error("runs overlapped")
	}
	if _, err := s.Last(); err == nil {
		t.Error("Last() lost the run error")
	}

	after := runner.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if runner.calls.Load() != after {
		t.Error("runner called after Stop")
	}
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 0)
	s.Start(context.Background())
	s.Stop()

	if n := runner.calls.Load(); n != 0 {
		t.Fatalf("ran %d times with a zero interval", n)
	}
}
