package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// BetType distinguishes buy orders from sell orders.
type BetType string

const (
	BetBuy  BetType = "buy"
	BetSell BetType = "sell"
)

// IsValid returns true if the type is a recognised order side.
func (t BetType) IsValid() bool {
	return t == BetBuy || t == BetSell
}

// NewID returns a 24-character opaque hex identifier, the id format used for
// events, bets and users across the persistence schema.
func NewID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("domain: id entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// ──────────────────────────────────────────────────────────────────────────────
// Bet
// ──────────────────────────────────────────────────────────────────────────────

// Bet is a standing order to buy or sell contracts of an option.
//
// A nil UserID marks a platform-owned synthetic order created by the
// liquidity engine. Sell bets always reference the buy they realise via
// BuyBetID, with the parent's entry price cached in BuyBetPricePerQuantity.
type Bet struct {
	ID                     string           `json:"id"                         db:"id"`
	EventID                string           `json:"event_id"                   db:"event_id"`
	UserID                 *string          `json:"user_id"                    db:"user_id"`
	OptionID               int64            `json:"option_id"                  db:"option_id"`
	Type                   BetType          `json:"type"                       db:"type"`
	Quantity               int64            `json:"quantity"                   db:"quantity"`
	PricePerQuantity       decimal.Decimal  `json:"price_per_quantity"         db:"price_per_quantity"`
	UnmatchedQuantity      int64            `json:"unmatched_quantity"         db:"unmatched_quantity"`
	RewardAmountUsed       decimal.Decimal  `json:"reward_amount_used"         db:"reward_amount_used"`
	SoldQuantity           *int64           `json:"sold_quantity"              db:"sold_quantity"`
	BuyBetID               *string          `json:"buy_bet_id"                 db:"buy_bet_id"`
	BuyBetPricePerQuantity *decimal.Decimal `json:"buy_bet_price_per_quantity" db:"buy_bet_price_per_quantity"`
	Profit                 *decimal.Decimal `json:"profit"                     db:"profit"`
	PlatformCommission     *decimal.Decimal `json:"platform_commission"        db:"platform_commission"`
	LimitOrder             bool             `json:"limit_order"                db:"limit_order"`
	CreatedAt              time.Time        `json:"created_at"                 db:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"                 db:"updated_at"`
}

// IsPlatform returns true for synthetic orders owned by the platform.
func (b *Bet) IsPlatform() bool {
	return b.UserID == nil
}

// MatchedQuantity returns the portion of the order that has been paired.
func (b *Bet) MatchedQuantity() int64 {
	return b.Quantity - b.UnmatchedQuantity
}

// Sold returns the buy's sold quantity, treating nil as zero.
func (b *Bet) Sold() int64 {
	if b.SoldQuantity == nil {
		return 0
	}
	return *b.SoldQuantity
}

// SellableQuantity returns how many contracts of a buy can still be sold:
// matched quantity minus quantity already committed to sell orders.
func (b *Bet) SellableQuantity() int64 {
	return b.MatchedQuantity() - b.Sold()
}

// TotalPrice returns price * quantity for the whole order.
func (b *Bet) TotalPrice() decimal.Decimal {
	return b.PricePerQuantity.Mul(decimal.NewFromInt(b.Quantity))
}

// EntryPrice returns the parent buy's per-unit price for a sell, falling back
// to the bet's own price when the cached value is missing.
func (b *Bet) EntryPrice() decimal.Decimal {
	if b.BuyBetPricePerQuantity != nil {
		return *b.BuyBetPricePerQuantity
	}
	return b.PricePerQuantity
}

// ──────────────────────────────────────────────────────────────────────────────
// Matched
// ──────────────────────────────────────────────────────────────────────────────

// Matched is an append-only record pairing two compatible bets. For every bet,
// the sum of matched quantities into it equals quantity - unmatchedQuantity.
type Matched struct {
	ID            int64           `json:"id"             db:"id"`
	BetID         string          `json:"bet_id"         db:"bet_id"`
	MatchedBetID  string          `json:"matched_bet_id" db:"matched_bet_id"`
	Quantity      int64           `json:"quantity"       db:"quantity"`
	LiquidityUsed decimal.Decimal `json:"liquidity_used" db:"liquidity_used"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// QueueEntry
// ──────────────────────────────────────────────────────────────────────────────

// QueueEntry is the pending-match handoff between admission / liquidity
// synthesis (producers) and the matching worker (sole consumer).
type QueueEntry struct {
	BetID     string    `json:"bet_id"     db:"bet_id"`
	EventID   string    `json:"event_id"   db:"event_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Request / filter value objects
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBetRequest carries the validated inputs for placing an order.
type PlaceBetRequest struct {
	UserID     string
	EventID    string
	OptionID   int64
	Type       BetType
	Quantity   int64
	Price      decimal.Decimal
	BuyBetID   *string // required for sells
	LimitOrder bool
}

// CancelBetRequest carries the inputs for rescinding unmatched quantity.
type CancelBetRequest struct {
	UserID   string
	BetID    string
	EventID  string
	Quantity int64
}

// BetFilter narrows listBets queries. Zero values mean "no constraint".
type BetFilter struct {
	UserID   string
	EventID  string
	OptionID int64
	Type     BetType
}

// Page is a paginated result set.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
