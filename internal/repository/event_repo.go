package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

// EventRepository handles all database operations for events and their
// options.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID fetches an event by its primary key.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var e domain.Event
	err := r.db.GetContext(ctx, &e, `SELECT * FROM event WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("event_repo.GetByID: %w", err)
	}
	return &e, nil
}

// GetByIDTx fetches an event inside an existing transaction. Used after the
// event lock is taken so the caller sees post-lock state.
func (r *EventRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Event, error) {
	var e domain.Event
	err := tx.GetContext(ctx, &e, `SELECT * FROM event WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("event_repo.GetByIDTx: %w", err)
	}
	return &e, nil
}

// ListOptions returns the event's options ordered by id. A well-formed event
// carries exactly two.
func (r *EventRepository) ListOptions(ctx context.Context, eventID string) ([]*domain.Option, error) {
	var opts []*domain.Option
	err := r.db.SelectContext(ctx, &opts,
		`SELECT * FROM option WHERE event_id = $1 ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListOptions: %w", err)
	}
	return opts, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// ListTransitionDue returns events whose status lags the wall clock: scheduled
// events inside [start_at, end_at] and non-completed events past end_at.
func (r *EventRepository) ListTransitionDue(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM event
		WHERE (status <> 'live'      AND start_at <= $1 AND end_at >= $1)
		   OR (status <> 'completed' AND end_at   <  $1)
		ORDER BY start_at ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListTransitionDue: %w", err)
	}
	return events, nil
}

// ListFreezeDue returns live, unfrozen events whose freeze time has passed.
func (r *EventRepository) ListFreezeDue(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM event
		WHERE status = 'live' AND frozen = false
		  AND freeze_at IS NOT NULL AND freeze_at <= $1`,
		now)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListFreezeDue: %w", err)
	}
	return events, nil
}

// UpdateStatus writes a new status inside a transaction. The event table
// trigger appends the event_status_log row.
func (r *EventRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status domain.EventStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("event_repo.UpdateStatus: %w", err)
	}
	return nil
}

// SetFrozen flips the freeze flag inside a transaction.
func (r *EventRepository) SetFrozen(ctx context.Context, tx *sqlx.Tx, id string, frozen bool) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event SET frozen = $1, updated_at = now() WHERE id = $2`,
		frozen, id)
	if err != nil {
		return fmt.Errorf("event_repo.SetFrozen: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Liquidity & resolution
// ──────────────────────────────────────────────────────────────────────────────

// SpendLiquidity decrements the event's platform liquidity reserve. The
// reserve is mutated only under the event lock; the WHERE guard keeps it from
// ever going negative even so.
func (r *EventRepository) SpendLiquidity(ctx context.Context, tx *sqlx.Tx, id string, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE event
		SET platform_liquidity_left = platform_liquidity_left - $1,
		    updated_at = now()
		WHERE id = $2 AND platform_liquidity_left >= $1`,
		amount, id)
	if err != nil {
		return fmt.Errorf("event_repo.SpendLiquidity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ListUnresolvedCompleted returns completed events awaiting resolution.
func (r *EventRepository) ListUnresolvedCompleted(ctx context.Context) ([]*domain.Event, error) {
	var events []*domain.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM event
		WHERE status = 'completed' AND resolved = false
		ORDER BY end_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListUnresolvedCompleted: %w", err)
	}
	return events, nil
}

// MarkResolved flips the resolved flag inside the resolution transaction.
// Only unresolved events match, so a second resolver pass is a no-op.
func (r *EventRepository) MarkResolved(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE event
		SET resolved = true, resolved_at = now(), updated_at = now()
		WHERE id = $1 AND resolved = false`,
		id)
	if err != nil {
		return fmt.Errorf("event_repo.MarkResolved: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEventAlreadyResolved
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Admin read-only views
// ──────────────────────────────────────────────────────────────────────────────

// OpenInterestRow aggregates outstanding unmatched quantity per option/side.
type OpenInterestRow struct {
	OptionID  int64  `json:"option_id" db:"option_id"`
	Type      string `json:"type"      db:"type"`
	Unmatched int64  `json:"unmatched" db:"unmatched"`
	Orders    int64  `json:"orders"    db:"orders"`
}

// OpenInterest returns per-option open interest for an event's admin view.
func (r *EventRepository) OpenInterest(ctx context.Context, eventID string) ([]OpenInterestRow, error) {
	var rows []OpenInterestRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT option_id, type,
		       COALESCE(SUM(unmatched_quantity), 0) AS unmatched,
		       COUNT(*)                             AS orders
		FROM bet
		WHERE event_id = $1 AND unmatched_quantity > 0
		GROUP BY option_id, type
		ORDER BY option_id, type`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("event_repo.OpenInterest: %w", err)
	}
	return rows, nil
}
