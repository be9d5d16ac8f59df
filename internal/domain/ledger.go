package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Transaction ledger
// ──────────────────────────────────────────────────────────────────────────────

// TxFor enumerates what a ledger row settles.
type TxFor string

const (
	TxForBet       TxFor = "bet"        // admission debit, or sell realisation credit
	TxForBetCancel TxFor = "bet_cancel" // cancellation refund
	TxForBetWin    TxFor = "bet_win"    // resolution payout on the winning option
)

// TxStatus is the settlement state of a ledger row. The core always writes
// completed rows; pending/failed exist for the external deposit pipeline.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Transaction is an immutable ledger row recording signed deltas against a
// user's main and reward subledgers. Rows are append-only; compensation is a
// new inverse row, never an update.
type Transaction struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	UserID       string          `json:"user_id"       db:"user_id"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`        // main-ledger delta
	RewardAmount decimal.Decimal `json:"reward_amount" db:"reward_amount"` // reward-ledger delta
	TxFor        TxFor           `json:"tx_for"        db:"tx_for"`
	TxStatus     TxStatus        `json:"tx_status"     db:"tx_status"`
	BetID        *string         `json:"bet_id"        db:"bet_id"`
	BetQuantity  *int64          `json:"bet_quantity"  db:"bet_quantity"`
	Token        string          `json:"token"         db:"token"`
	Chain        string          `json:"chain"         db:"chain"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
}

// NewLedgerRow builds a completed ledger row for a bet-related settlement.
func NewLedgerRow(userID string, amount, rewardAmount decimal.Decimal, txFor TxFor, betID string, betQuantity int64, token, chain string) *Transaction {
	qty := betQuantity
	id := betID
	return &Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       RoundMoney(amount),
		RewardAmount: RoundMoney(rewardAmount),
		TxFor:        txFor,
		TxStatus:     TxCompleted,
		BetID:        &id,
		BetQuantity:  &qty,
		Token:        token,
		Chain:        chain,
		CreatedAt:    time.Now().UTC(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Balance
// ──────────────────────────────────────────────────────────────────────────────

// Balance is a user's holdings for one (token, chain), split into the
// withdrawable main subledger and the non-withdrawable reward subledger.
// Reward funds are spent before main funds on every debit.
type Balance struct {
	UserID       string          `json:"user_id"       db:"user_id"`
	Token        string          `json:"token"         db:"token"`
	Chain        string          `json:"chain"         db:"chain"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`
	RewardAmount decimal.Decimal `json:"reward_amount" db:"reward_amount"`
	UpdatedAt    time.Time       `json:"updated_at"    db:"updated_at"`
}

// Total returns main plus reward holdings.
func (b *Balance) Total() decimal.Decimal {
	return b.Amount.Add(b.RewardAmount)
}
