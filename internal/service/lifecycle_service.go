package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// LifecycleService
// ──────────────────────────────────────────────────────────────────────────────

// LifecycleService drives events through scheduled → live → completed by wall
// clock, and freezes live events whose freeze time has passed. Every
// transition runs under the event lock so the matching worker never observes
// a torn state.
type LifecycleService struct {
	store  *repository.Store
	events *repository.EventRepository
	logger *slog.Logger
}

// NewLifecycleService creates a LifecycleService.
func NewLifecycleService(store *repository.Store, events *repository.EventRepository, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{store: store, events: events, logger: logger}
}

// Run executes one state tick: status transitions, then freezes.
func (s *LifecycleService) Run(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := s.events.ListTransitionDue(ctx, now)
	if err != nil {
		return err
	}
	for _, e := range due {
		if err := s.transition(ctx, e.ID); err != nil {
			s.logger.Error("lifecycle: transition failed", "event_id", e.ID, "err", err)
		}
	}

	freeze, err := s.events.ListFreezeDue(ctx, now)
	if err != nil {
		return err
	}
	for _, e := range freeze {
		if err := s.freeze(ctx, e.ID); err != nil {
			s.logger.Error("lifecycle: freeze failed", "event_id", e.ID, "err", err)
		}
	}
	return nil
}

// transition moves one event to the status its timestamps dictate, re-reading
// it under the event lock first.
func (s *LifecycleService) transition(ctx context.Context, eventID string) error {
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		event, err := s.events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		var next domain.EventStatus
		switch {
		case event.EndAt.Before(now) && event.Status != domain.EventCompleted:
			next = domain.EventCompleted
		case !event.StartAt.After(now) && !event.EndAt.Before(now) && event.Status != domain.EventLive:
			next = domain.EventLive
		default:
			return nil
		}

		if err := s.events.UpdateStatus(ctx, tx, eventID, next); err != nil {
			return err
		}
		s.logger.Info("lifecycle: event transitioned",
			"event_id", eventID, "from", event.Status, "to", next)
		return nil
	})
}

// freeze flips the freeze flag on a live event whose freeze time has passed.
func (s *LifecycleService) freeze(ctx context.Context, eventID string) error {
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		event, err := s.events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event.Frozen || !event.IsLive() ||
			event.FreezeAt == nil || event.FreezeAt.After(time.Now().UTC()) {
			return nil
		}
		if err := s.events.SetFrozen(ctx, tx, eventID, true); err != nil {
			return err
		}
		s.logger.Info("lifecycle: event frozen", "event_id", eventID)
		return nil
	})
}
