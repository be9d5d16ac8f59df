package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/predikto/tradecore/internal/config"
	"github.com/predikto/tradecore/internal/scheduler"
)

// slowWorker records how many of its runs overlap.
type slowWorker struct {
	delay      time.Duration
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	totalTicks atomic.Int32
}

func (w *slowWorker) Run(ctx context.Context) error {
	n := w.inFlight.Add(1)
	defer w.inFlight.Add(-1)
	for {
		prev := w.maxSeen.Load()
		if n <= prev || w.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	w.totalTicks.Add(1)

	select {
	case <-ctx.Done():
	case <-time.After(w.delay):
	}
	return nil
}

type noopWorker struct{}

func (noopWorker) Run(ctx context.Context) error { return nil }

// TestSingleFlightPerLoop verifies a loop skips ticks while a previous run is
// still in flight, so a slow tick never overlaps itself.
func TestSingleFlightPerLoop(t *testing.T) {
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			MatchInterval:     10 * time.Millisecond,
			LiquidityInterval: time.Hour,
			StateInterval:     time.Hour,
			ResolverInterval:  time.Hour,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	slow := &slowWorker{delay: 50 * time.Millisecond}
	s := scheduler.NewScheduler(slow, noopWorker{}, noopWorker{}, noopWorker{}, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(300 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	if got := slow.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
	// ~300ms of 10ms ticks with 50ms work: several ticks fire, several skip.
	if ticks := slow.totalTicks.Load(); ticks < 2 {
		t.Errorf("worker ran %d times, want at least 2", ticks)
	}
}

// TestShutdownStopsLoops verifies cancelling the context ends the loops
// without further ticks.
func TestShutdownStopsLoops(t *testing.T) {
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			MatchInterval:     5 * time.Millisecond,
			LiquidityInterval: 5 * time.Millisecond,
			StateInterval:     5 * time.Millisecond,
			ResolverInterval:  5 * time.Millisecond,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := &slowWorker{delay: 0}
	s := scheduler.NewScheduler(w, w, w, w, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	before := w.totalTicks.Load()
	time.Sleep(50 * time.Millisecond)
	if after := w.totalTicks.Load(); after != before {
		t.Errorf("loops still ticking after cancel: %d -> %d", before, after)
	}
}
