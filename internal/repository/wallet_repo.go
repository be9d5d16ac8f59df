package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/predikto/tradecore/internal/domain"
)

// WalletRepository handles user balances and the append-only transaction
// ledger. Every ledger insert applies its signed deltas to the balances row
// in the same statement batch, so balance always equals the ledger sum.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetBalance fetches a user's balance for one (token, chain).
func (r *WalletRepository) GetBalance(ctx context.Context, userID, token, chain string) (*domain.Balance, error) {
	var b domain.Balance
	err := r.db.GetContext(ctx, &b, `
		SELECT * FROM balances
		WHERE user_id = $1 AND token = $2 AND chain = $3`,
		userID, token, chain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetBalance: %w", err)
	}
	return &b, nil
}

// GetBalanceForUpdate fetches a balance with a row lock inside a transaction.
// Admission reads it this way so the funds check and the debit see the same
// amounts.
func (r *WalletRepository) GetBalanceForUpdate(ctx context.Context, tx *sqlx.Tx, userID, token, chain string) (*domain.Balance, error) {
	var b domain.Balance
	err := tx.GetContext(ctx, &b, `
		SELECT * FROM balances
		WHERE user_id = $1 AND token = $2 AND chain = $3
		FOR UPDATE`,
		userID, token, chain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetBalanceForUpdate: %w", err)
	}
	return &b, nil
}

// Apply inserts one ledger row and folds its deltas into the balances row.
func (r *WalletRepository) Apply(ctx context.Context, tx *sqlx.Tx, t *domain.Transaction) error {
	if err := r.insert(ctx, tx, t); err != nil {
		return err
	}
	return r.upsertBalance(ctx, tx, t)
}

// ApplyBatch inserts N ledger rows and their balance deltas. The resolver
// uses this for winner payouts.
func (r *WalletRepository) ApplyBatch(ctx context.Context, tx *sqlx.Tx, ts []*domain.Transaction) error {
	if len(ts) == 0 {
		return nil
	}
	query := `
		INSERT INTO transaction
			(id, user_id, amount, reward_amount, tx_for, tx_status,
			 bet_id, bet_quantity, token, chain, created_at)
		VALUES
			(:id, :user_id, :amount, :reward_amount, :tx_for, :tx_status,
			 :bet_id, :bet_quantity, :token, :chain, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, ts); err != nil {
		return fmt.Errorf("wallet_repo.ApplyBatch: %w", err)
	}
	for _, t := range ts {
		if err := r.upsertBalance(ctx, tx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *WalletRepository) insert(ctx context.Context, tx *sqlx.Tx, t *domain.Transaction) error {
	query := `
		INSERT INTO transaction
			(id, user_id, amount, reward_amount, tx_for, tx_status,
			 bet_id, bet_quantity, token, chain, created_at)
		VALUES
			(:id, :user_id, :amount, :reward_amount, :tx_for, :tx_status,
			 :bet_id, :bet_quantity, :token, :chain, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("wallet_repo.insert: %w", err)
	}
	return nil
}

func (r *WalletRepository) upsertBalance(ctx context.Context, tx *sqlx.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, token, chain, amount, reward_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, token, chain) DO UPDATE
		SET amount        = balances.amount + EXCLUDED.amount,
		    reward_amount = balances.reward_amount + EXCLUDED.reward_amount,
		    updated_at    = now()`,
		t.UserID, t.Token, t.Chain, t.Amount, t.RewardAmount)
	if err != nil {
		return fmt.Errorf("wallet_repo.upsertBalance: %w", err)
	}
	return nil
}

// ListTransactions returns a user's ledger rows newest first, for the API.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var ts []*domain.Transaction
	err := r.db.SelectContext(ctx, &ts, `
		SELECT * FROM transaction
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.ListTransactions: %w", err)
	}
	return ts, nil
}
