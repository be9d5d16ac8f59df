package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

func bandEvent(inBetween bool) *domain.Event {
	return &domain.Event{
		WinPrice:               d("100"),
		MinLiquidityPercentage: d("20"),
		MaxLiquidityPercentage: d("80"),
		LiquidityInBetween:     inBetween,
	}
}

func TestInLiquidityBandTails(t *testing.T) {
	e := bandEvent(false)

	tests := []struct {
		price string
		want  bool
	}{
		{"10", true},  // r=10, below min
		{"20", true},  // boundary
		{"50", false}, // middle excluded
		{"80", true},  // boundary
		{"90", true},  // above max
	}
	for _, tt := range tests {
		if got := e.InLiquidityBand(d(tt.price)); got != tt.want {
			t.Errorf("tails: InLiquidityBand(%s) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestInLiquidityBandMiddle(t *testing.T) {
	e := bandEvent(true)

	tests := []struct {
		price string
		want  bool
	}{
		{"10", false},
		{"20", true},
		{"50", true},
		{"80", true},
		{"90", false},
	}
	for _, tt := range tests {
		if got := e.InLiquidityBand(d(tt.price)); got != tt.want {
			t.Errorf("middle: InLiquidityBand(%s) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestCounterPrice(t *testing.T) {
	e := &domain.Event{WinPrice: d("100")}

	buy := &domain.Bet{Type: domain.BetBuy, PricePerQuantity: d("10")}
	if got := e.CounterPrice(buy); !got.Equal(d("90")) {
		t.Errorf("buy counter-price = %s, want 90", got)
	}

	sell := &domain.Bet{Type: domain.BetSell, PricePerQuantity: d("10")}
	if got := e.CounterPrice(sell); !got.Equal(d("10")) {
		t.Errorf("sell counter-price = %s, want 10", got)
	}
}

func TestAcceptable(t *testing.T) {
	tests := []struct {
		status domain.EventStatus
		frozen bool
		want   bool
	}{
		{domain.EventLive, false, true},
		{domain.EventLive, true, false},
		{domain.EventScheduled, false, false},
		{domain.EventCompleted, false, false},
	}
	for _, tt := range tests {
		e := &domain.Event{Status: tt.status, Frozen: tt.frozen}
		if got := e.Acceptable(); got != tt.want {
			t.Errorf("Acceptable(status=%s frozen=%v) = %v, want %v",
				tt.status, tt.frozen, got, tt.want)
		}
	}
}

func TestWithinSlippage(t *testing.T) {
	e := &domain.Event{Slippage: d("2")}

	if !e.WithinSlippage(d("40"), d("42")) {
		t.Error("40 vs 42 should be within slippage 2")
	}
	if e.WithinSlippage(d("40"), d("43")) {
		t.Error("40 vs 43 should be outside slippage 2")
	}
}

func TestPairOptions(t *testing.T) {
	opts := []*domain.Option{
		{ID: 1, Name: "yes"},
		{ID: 2, Name: "no"},
	}

	pair := domain.PairOptions(opts, 2)
	if pair == nil {
		t.Fatal("expected a pair for option 2")
	}
	if pair.Chosen.ID != 2 || pair.Other.ID != 1 {
		t.Errorf("pair = (%d, %d), want (2, 1)", pair.Chosen.ID, pair.Other.ID)
	}

	if domain.PairOptions(opts, 3) != nil {
		t.Error("unknown option id should not pair")
	}
	if domain.PairOptions(opts[:1], 1) != nil {
		t.Error("a single-option event should not pair")
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := domain.NewID()
		if len(id) != 24 {
			t.Fatalf("id %q has length %d, want 24", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSellableQuantity(t *testing.T) {
	sold := int64(4)
	b := &domain.Bet{
		Quantity:          10,
		UnmatchedQuantity: 3,
		SoldQuantity:      &sold,
		CreatedAt:         time.Now(),
	}
	// matched 7, of which 4 already committed to sells
	if got := b.SellableQuantity(); got != 3 {
		t.Errorf("SellableQuantity = %d, want 3", got)
	}
}

func TestEntryPriceFallsBackToOwnPrice(t *testing.T) {
	b := &domain.Bet{PricePerQuantity: d("42")}
	if got := b.EntryPrice(); !got.Equal(d("42")) {
		t.Errorf("EntryPrice = %s, want 42", got)
	}
	parent := decimal.RequireFromString("37")
	b.BuyBetPricePerQuantity = &parent
	if got := b.EntryPrice(); !got.Equal(d("37")) {
		t.Errorf("EntryPrice = %s, want 37", got)
	}
}
