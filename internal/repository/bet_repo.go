package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

// BetRepository handles all database operations for bets and matched pairs.
type BetRepository struct {
	db *sqlx.DB
}

// NewBetRepository creates a new BetRepository.
func NewBetRepository(db *sqlx.DB) *BetRepository {
	return &BetRepository{db: db}
}

// Create inserts a new bet inside an existing transaction.
func (r *BetRepository) Create(ctx context.Context, tx *sqlx.Tx, b *domain.Bet) error {
	query := `
		INSERT INTO bet
			(id, event_id, user_id, option_id, type, quantity, price_per_quantity,
			 unmatched_quantity, reward_amount_used, sold_quantity, buy_bet_id,
			 buy_bet_price_per_quantity, profit, platform_commission, limit_order,
			 created_at, updated_at)
		VALUES
			(:id, :event_id, :user_id, :option_id, :type, :quantity, :price_per_quantity,
			 :unmatched_quantity, :reward_amount_used, :sold_quantity, :buy_bet_id,
			 :buy_bet_price_per_quantity, :profit, :platform_commission, :limit_order,
			 :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("bet_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a bet by its primary key.
func (r *BetRepository) GetByID(ctx context.Context, id string) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bet WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByID: %w", err)
	}
	return &b, nil
}

// GetByIDTx fetches a bet inside an existing transaction.
func (r *BetRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Bet, error) {
	var b domain.Bet
	err := tx.GetContext(ctx, &b, `SELECT * FROM bet WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByIDTx: %w", err)
	}
	return &b, nil
}

// GetForUpdate fetches a bet with a row lock. Admission locks the parent buy
// this way so concurrent matching cannot change its matched quantity between
// the over-sell check and the bookkeeping update.
func (r *BetRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Bet, error) {
	var b domain.Bet
	err := tx.GetContext(ctx, &b, `SELECT * FROM bet WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetForUpdate: %w", err)
	}
	return &b, nil
}

// Update writes a bet's mutable fields inside a transaction.
func (r *BetRepository) Update(ctx context.Context, tx *sqlx.Tx, b *domain.Bet) error {
	query := `
		UPDATE bet
		SET quantity            = :quantity,
		    unmatched_quantity  = :unmatched_quantity,
		    reward_amount_used  = :reward_amount_used,
		    sold_quantity       = :sold_quantity,
		    profit              = :profit,
		    platform_commission = :platform_commission,
		    updated_at          = now()
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, b)
	if err != nil {
		return fmt.Errorf("bet_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBetNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Batched updates — values-join statements, one round-trip for N rows
// ──────────────────────────────────────────────────────────────────────────────

// UnmatchedDelta carries one row of a batched unmatched-quantity decrement.
type UnmatchedDelta struct {
	BetID string
	Qty   int64
}

// DecrementUnmatchedBatch subtracts matched quantity from N candidate bets in
// a single values-join statement.
func (r *BetRepository) DecrementUnmatchedBatch(ctx context.Context, tx *sqlx.Tx, deltas []UnmatchedDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(deltas)*2)
	for i, d := range deltas {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($" + strconv.Itoa(i*2+1) + "::char(24), $" + strconv.Itoa(i*2+2) + "::bigint)")
		args = append(args, d.BetID, d.Qty)
	}
	query := `
		UPDATE bet AS b
		SET unmatched_quantity = b.unmatched_quantity - v.qty,
		    updated_at         = now()
		FROM (VALUES ` + sb.String() + `) AS v(id, qty)
		WHERE b.id = v.id AND b.unmatched_quantity >= v.qty`
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("bet_repo.DecrementUnmatchedBatch: %w", err)
	}
	if n, _ := res.RowsAffected(); n != int64(len(deltas)) {
		return domain.ErrConflict
	}
	return nil
}

// Settlement carries one row of a batched profit/commission write at
// resolution.
type Settlement struct {
	BetID      string
	Profit     decimal.Decimal
	Commission decimal.Decimal
}

// SettleBatch writes profit and platform commission for N bets in a single
// values-join statement.
func (r *BetRepository) SettleBatch(ctx context.Context, tx *sqlx.Tx, rows []Settlement) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(rows)*3)
	for i, s := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 3
		sb.WriteString("($" + strconv.Itoa(base+1) + "::char(24), $" + strconv.Itoa(base+2) + "::numeric, $" + strconv.Itoa(base+3) + "::numeric)")
		args = append(args, s.BetID, s.Profit, s.Commission)
	}
	query := `
		UPDATE bet AS b
		SET profit              = v.profit,
		    platform_commission = v.commission,
		    updated_at          = now()
		FROM (VALUES ` + sb.String() + `) AS v(id, profit, commission)
		WHERE b.id = v.id`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bet_repo.SettleBatch: %w", err)
	}
	return nil
}

// InsertMatched appends matched pairs, batched through a named statement.
func (r *BetRepository) InsertMatched(ctx context.Context, tx *sqlx.Tx, pairs []*domain.Matched) error {
	if len(pairs) == 0 {
		return nil
	}
	query := `
		INSERT INTO matched (bet_id, matched_bet_id, quantity, liquidity_used, created_at)
		VALUES (:bet_id, :matched_bet_id, :quantity, :liquidity_used, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, pairs); err != nil {
		return fmt.Errorf("bet_repo.InsertMatched: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Candidate selection for the matching worker
// ──────────────────────────────────────────────────────────────────────────────

// Candidates returns unmatched counter-orders of the given side on one option
// whose price lies within slippage of center, excluding the taker itself.
// userOnly additionally restricts to user-owned orders (platform takers never
// match other platform bets; sell takers only match user buys).
//
// Rows come back in matching priority order: total price (price*quantity)
// descending, then age ascending.
func (r *BetRepository) Candidates(
	ctx context.Context,
	tx *sqlx.Tx,
	eventID string,
	optionID int64,
	side domain.BetType,
	center, slippage decimal.Decimal,
	excludeID string,
	userOnly bool,
) ([]*domain.Bet, error) {
	query := `
		SELECT * FROM bet
		WHERE event_id = $1
		  AND option_id = $2
		  AND type = $3
		  AND unmatched_quantity > 0
		  AND id <> $4
		  AND ABS(price_per_quantity - $5) <= $6`
	if userOnly {
		query += `
		  AND user_id IS NOT NULL`
	}
	query += `
		ORDER BY price_per_quantity * quantity DESC, created_at ASC`

	var bets []*domain.Bet
	err := tx.SelectContext(ctx, &bets, query,
		eventID, optionID, string(side), excludeID, center, slippage)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.Candidates: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Liquidity engine selection
// ──────────────────────────────────────────────────────────────────────────────

// ListAgingUnmatched returns user-owned bets with open unmatched quantity on
// live, unfrozen events that have not been touched since cutoff. The band and
// reserve checks happen in the service against the locked event row.
func (r *BetRepository) ListAgingUnmatched(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.SelectContext(ctx, &bets, `
		SELECT b.* FROM bet b
		JOIN event e ON e.id = b.event_id
		WHERE b.user_id IS NOT NULL
		  AND b.unmatched_quantity > 0
		  AND b.updated_at <= $1
		  AND e.status = 'live'
		  AND e.frozen = false
		  AND e.platform_liquidity_left > 0
		ORDER BY b.updated_at ASC
		LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.ListAgingUnmatched: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolution selection
// ──────────────────────────────────────────────────────────────────────────────

// ListResidual returns an event's bets of one side with unmatched quantity
// remaining, oldest first. The resolver cancels sells before buys.
func (r *BetRepository) ListResidual(ctx context.Context, tx *sqlx.Tx, eventID string, side domain.BetType) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := tx.SelectContext(ctx, &bets, `
		SELECT * FROM bet
		WHERE event_id = $1 AND type = $2 AND unmatched_quantity > 0
		ORDER BY created_at ASC`,
		eventID, string(side))
	if err != nil {
		return nil, fmt.Errorf("bet_repo.ListResidual: %w", err)
	}
	return bets, nil
}

// ListUserBuysByOption returns user-owned buys with remaining quantity on one
// option, for loser marking and winner payouts.
func (r *BetRepository) ListUserBuysByOption(ctx context.Context, tx *sqlx.Tx, eventID string, optionID int64) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := tx.SelectContext(ctx, &bets, `
		SELECT * FROM bet
		WHERE event_id = $1 AND option_id = $2 AND type = 'buy'
		  AND user_id IS NOT NULL AND quantity > 0
		ORDER BY created_at ASC`,
		eventID, optionID)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.ListUserBuysByOption: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// API queries
// ──────────────────────────────────────────────────────────────────────────────

// List returns a filtered, paginated slice of bets plus the total count.
func (r *BetRepository) List(ctx context.Context, f domain.BetFilter, page, limit int) (*domain.Page[*domain.Bet], error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.UserID != "" {
		where = append(where, "user_id = "+arg(f.UserID))
	}
	if f.EventID != "" {
		where = append(where, "event_id = "+arg(f.EventID))
	}
	if f.OptionID != 0 {
		where = append(where, "option_id = "+arg(f.OptionID))
	}
	if f.Type != "" {
		where = append(where, "type = "+arg(string(f.Type)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM bet WHERE `+cond, args...); err != nil {
		return nil, fmt.Errorf("bet_repo.List count: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var bets []*domain.Bet
	query := `SELECT * FROM bet WHERE ` + cond +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	if err := r.db.SelectContext(ctx, &bets, query, args...); err != nil {
		return nil, fmt.Errorf("bet_repo.List select: %w", err)
	}

	return &domain.Page[*domain.Bet]{Items: bets, Total: total, Page: page, Limit: limit}, nil
}
