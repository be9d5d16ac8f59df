// Package scheduler manages the four background goroutines that run the
// trading core:
//  1. matchLoop     – drains the bet queue every 5 seconds.
//  2. liquidityLoop – backstops aging unmatched orders every 20 seconds.
//  3. stateLoop     – transitions events by wall clock every 5 seconds.
//  4. resolverLoop  – settles completed events every 5 seconds.
//
// Each loop carries a process-local single-flight flag so a slow tick is
// skipped rather than overlapped; correctness across loops and across
// processes comes from the database advisory locks, not from in-process
// coordination.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/predikto/tradecore/internal/config"
)

// Worker is one tickable unit of background work. Implemented by
// service.MatchingService, LiquidityService, LifecycleService and
// ResolutionService.
type Worker interface {
	Run(ctx context.Context) error
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires the services to their tickers. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	matcher   Worker
	liquidity Worker
	lifecycle Worker
	resolver  Worker
	cfg       *config.Config
	logger    *slog.Logger

	// single-flight flags, one per loop
	matchBusy     atomic.Bool
	liquidityBusy atomic.Bool
	stateBusy     atomic.Bool
	resolverBusy  atomic.Bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	matcher Worker,
	liquidity Worker,
	lifecycle Worker,
	resolver Worker,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		matcher:   matcher,
		liquidity: liquidity,
		lifecycle: lifecycle,
		resolver:  resolver,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the four background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "matchLoop", s.cfg.Worker.MatchInterval, s.matcher, &s.matchBusy)
	go s.loop(ctx, "liquidityLoop", s.cfg.Worker.LiquidityInterval, s.liquidity, &s.liquidityBusy)
	go s.loop(ctx, "stateLoop", s.cfg.Worker.StateInterval, s.lifecycle, &s.stateBusy)
	go s.loop(ctx, "resolverLoop", s.cfg.Worker.ResolverInterval, s.resolver, &s.resolverBusy)
	s.logger.Info("scheduler started",
		"match", s.cfg.Worker.MatchInterval,
		"liquidity", s.cfg.Worker.LiquidityInterval,
		"state", s.cfg.Worker.StateInterval,
		"resolver", s.cfg.Worker.ResolverInterval)
}

// loop ticks a worker at the given interval, skipping ticks while a previous
// run is still in flight.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, w Worker, busy *atomic.Bool) {
	defer s.recoverAndLog(name)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("loop shutting down", "loop", name)
			return
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				s.logger.Debug("loop still running, skipping tick", "loop", name)
				continue
			}
			s.tick(ctx, name, w, busy)
		}
	}
}

// tick runs one iteration, extracted so that defers release the flag and
// catch panics even when the worker blows up.
func (s *Scheduler) tick(ctx context.Context, name string, w Worker, busy *atomic.Bool) {
	defer busy.Store(false)
	defer s.recoverAndLog(name)

	if err := w.Run(ctx); err != nil {
		s.logger.Error("loop tick failed", "loop", name, "err", err)
	}
}

// recoverAndLog catches unexpected panics so a single bad tick cannot take
// the whole scheduler down.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
