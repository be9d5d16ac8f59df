// Package domain defines the core business entities and money math for the
// prediction-market trading core: events, options, bets, matches, the bet
// queue and the transaction ledger.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// EventStatus represents the lifecycle state of an event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled" // created, betting not yet open
	EventLive      EventStatus = "live"      // accepting and matching orders
	EventCompleted EventStatus = "completed" // past endAt, awaiting resolution
)

// ──────────────────────────────────────────────────────────────────────────────
// Event
// ──────────────────────────────────────────────────────────────────────────────

// Event is a binary-outcome prediction event. Exactly two Options belong to
// each event; their odds sum to 100 and their prices sum to WinPrice.
type Event struct {
	ID                     string          `json:"id"                        db:"id"`
	Name                   string          `json:"name"                      db:"name"`
	StartAt                time.Time       `json:"start_at"                  db:"start_at"`
	EndAt                  time.Time       `json:"end_at"                    db:"end_at"`
	FreezeAt               *time.Time      `json:"freeze_at"                 db:"freeze_at"`
	Status                 EventStatus     `json:"status"                    db:"status"`
	Frozen                 bool            `json:"frozen"                    db:"frozen"`
	OptionWon              *int64          `json:"option_won"                db:"option_won"`
	Resolved               bool            `json:"resolved"                  db:"resolved"`
	ResolvedAt             *time.Time      `json:"resolved_at"               db:"resolved_at"`
	PlatformLiquidityLeft  decimal.Decimal `json:"platform_liquidity_left"   db:"platform_liquidity_left"`
	MinLiquidityPercentage decimal.Decimal `json:"min_liquidity_percentage"  db:"min_liquidity_percentage"`
	MaxLiquidityPercentage decimal.Decimal `json:"max_liquidity_percentage"  db:"max_liquidity_percentage"`
	LiquidityInBetween     bool            `json:"liquidity_in_between"      db:"liquidity_in_between"`
	PlatformFeesPercentage decimal.Decimal `json:"platform_fees_percentage"  db:"platform_fees_percentage"`
	WinPrice               decimal.Decimal `json:"win_price"                 db:"win_price"`
	Slippage               decimal.Decimal `json:"slippage"                  db:"slippage"`
	Token                  string          `json:"token"                     db:"token"`
	Chain                  string          `json:"chain"                     db:"chain"`
	CreatedAt              time.Time       `json:"created_at"                db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"                db:"updated_at"`
}

// IsLive returns true while the event accepts new orders.
func (e *Event) IsLive() bool {
	return e.Status == EventLive
}

// IsCompleted returns true once the betting window is over.
func (e *Event) IsCompleted() bool {
	return e.Status == EventCompleted
}

// Acceptable returns true when the event can admit an order: live and not
// frozen.
func (e *Event) Acceptable() bool {
	return e.Status == EventLive && !e.Frozen
}

// PriceRatio returns price as a percentage of WinPrice (0-100).
// Returns decimal.Zero when WinPrice is zero (guard against division by zero).
func (e *Event) PriceRatio(price decimal.Decimal) decimal.Decimal {
	if e.WinPrice.IsZero() {
		return decimal.Zero
	}
	return price.Div(e.WinPrice).Mul(decimal.NewFromInt(100))
}

// InLiquidityBand reports whether a per-unit price is eligible for platform
// liquidity under the event's band policy.
//
// With r = price/WinPrice*100:
//
//	liquidityInBetween=false: admit the tails,  r <= min OR r >= max
//	liquidityInBetween=true:  admit the middle, min <= r <= max
func (e *Event) InLiquidityBand(price decimal.Decimal) bool {
	r := e.PriceRatio(price)
	if e.LiquidityInBetween {
		return r.GreaterThanOrEqual(e.MinLiquidityPercentage) &&
			r.LessThanOrEqual(e.MaxLiquidityPercentage)
	}
	return r.LessThanOrEqual(e.MinLiquidityPercentage) ||
		r.GreaterThanOrEqual(e.MaxLiquidityPercentage)
}

// CounterPrice returns the per-unit price the platform pays to take the other
// side of a bet: the bet's own price for sells, the WinPrice complement for
// buys.
func (e *Event) CounterPrice(b *Bet) decimal.Decimal {
	if b.Type == BetSell {
		return b.PricePerQuantity
	}
	return e.WinPrice.Sub(b.PricePerQuantity)
}

// WithinSlippage reports whether two per-unit prices are within the event's
// slippage window of each other.
func (e *Event) WithinSlippage(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(e.Slippage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Option
// ──────────────────────────────────────────────────────────────────────────────

// Option is one of the two outcomes of an event. Price is derived from odds:
// price = winPrice * odds / 100.
type Option struct {
	ID        int64           `json:"id"         db:"id"`
	EventID   string          `json:"event_id"   db:"event_id"`
	Name      string          `json:"name"       db:"name"`
	Odds      decimal.Decimal `json:"odds"       db:"odds"`
	Price     decimal.Decimal `json:"price"      db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// OptionPair holds an event's two options keyed by which one an order chose.
type OptionPair struct {
	Chosen *Option
	Other  *Option
}

// PairOptions splits an event's option list into (chosen, sibling) for the
// given option id. Returns nil when the id is not on the event or the event
// does not carry exactly two options.
func PairOptions(options []*Option, optionID int64) *OptionPair {
	if len(options) != 2 {
		return nil
	}
	if options[0].ID == optionID {
		return &OptionPair{Chosen: options[0], Other: options[1]}
	}
	if options[1].ID == optionID {
		return &OptionPair{Chosen: options[1], Other: options[0]}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// EventStatusLog
// ──────────────────────────────────────────────────────────────────────────────

// EventStatusLog is an append-only record of every status write, emitted by a
// database trigger on the event table.
type EventStatusLog struct {
	ID        int64       `json:"id"         db:"id"`
	EventID   string      `json:"event_id"   db:"event_id"`
	Status    EventStatus `json:"status"     db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
