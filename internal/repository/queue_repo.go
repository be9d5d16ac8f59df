package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/predikto/tradecore/internal/domain"
)

// QueueRepository handles the pending-match queue between admission (and the
// liquidity engine) and the matching worker.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue appends a bet to the pending-match queue inside the same
// transaction that created or modified the bet, so the bet and its queue
// entry become visible together.
func (r *QueueRepository) Enqueue(ctx context.Context, tx *sqlx.Tx, betID, eventID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bet_queue (bet_id, event_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (bet_id) DO NOTHING`,
		betID, eventID)
	if err != nil {
		return fmt.Errorf("queue_repo.Enqueue: %w", err)
	}
	return nil
}

// Remove deletes a bet's queue entry. Called when the matching worker has
// fully processed a taker, and on cancellation of a still-queued bet.
func (r *QueueRepository) Remove(ctx context.Context, tx *sqlx.Tx, betID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM bet_queue WHERE bet_id = $1`, betID)
	if err != nil {
		return fmt.Errorf("queue_repo.Remove: %w", err)
	}
	return nil
}

// Snapshot returns up to limit pending entries in arrival order. The matching
// worker groups them by event before processing.
func (r *QueueRepository) Snapshot(ctx context.Context, limit int) ([]*domain.QueueEntry, error) {
	var entries []*domain.QueueEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT bet_id, event_id, created_at
		FROM bet_queue
		ORDER BY created_at ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("queue_repo.Snapshot: %w", err)
	}
	return entries, nil
}

// DepthRow is one event's pending-queue depth for the admin view.
type DepthRow struct {
	EventID string `json:"event_id" db:"event_id"`
	Depth   int64  `json:"depth"    db:"depth"`
	Oldest  string `json:"oldest"   db:"oldest"`
}

// Depth aggregates queue depth per event, deepest first.
func (r *QueueRepository) Depth(ctx context.Context) ([]DepthRow, error) {
	var rows []DepthRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT event_id, COUNT(*) AS depth, MIN(created_at)::text AS oldest
		FROM bet_queue
		GROUP BY event_id
		ORDER BY depth DESC`)
	if err != nil {
		return nil, fmt.Errorf("queue_repo.Depth: %w", err)
	}
	return rows, nil
}
