package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

func mkBet(id string, price string, qty, unmatched int64, age time.Duration) *domain.Bet {
	return &domain.Bet{
		ID:                id,
		PricePerQuantity:  decimal.RequireFromString(price),
		Quantity:          qty,
		UnmatchedQuantity: unmatched,
		CreatedAt:         time.Now().Add(-age),
	}
}

func TestSortCandidatesTotalPriceThenAge(t *testing.T) {
	a := mkBet("a", "10", 5, 5, 1*time.Minute)  // total 50
	b := mkBet("b", "20", 5, 5, 2*time.Minute)  // total 100
	c := mkBet("c", "10", 10, 3, 3*time.Minute) // total 100, older than b
	cands := []*domain.Bet{a, b, c}

	sortCandidates(cands)

	want := []string{"c", "b", "a"}
	for i, id := range want {
		if cands[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, cands[i].ID, id)
		}
	}
}

func TestSelectByCumulativeFillIncludesCrossingPartial(t *testing.T) {
	cands := []*domain.Bet{
		mkBet("a", "10", 5, 5, 0), // cum 5
		mkBet("b", "10", 4, 4, 0), // cum 9, crosses want=8
		mkBet("c", "10", 3, 3, 0), // must not be taken
	}

	got := selectByCumulativeFill(cands, 8)
	if len(got) != 2 {
		t.Fatalf("selected %d candidates, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("selected [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestSelectByCumulativeFillExactBoundary(t *testing.T) {
	cands := []*domain.Bet{
		mkBet("a", "10", 5, 5, 0),
		mkBet("b", "10", 3, 3, 0), // cum 8 == want; stop here
		mkBet("c", "10", 2, 2, 0),
	}

	got := selectByCumulativeFill(cands, 8)
	if len(got) != 2 {
		t.Fatalf("selected %d candidates, want 2", len(got))
	}
}

func TestSelectByCumulativeFillSkipsDrained(t *testing.T) {
	cands := []*domain.Bet{
		mkBet("a", "10", 5, 0, 0), // already fully matched
		mkBet("b", "10", 5, 5, 0),
	}

	got := selectByCumulativeFill(cands, 5)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("drained candidate should be skipped, got %d selections", len(got))
	}
}

func TestSelectByCumulativeFillTakesAllWhenShort(t *testing.T) {
	cands := []*domain.Bet{
		mkBet("a", "10", 2, 2, 0),
		mkBet("b", "10", 2, 2, 0),
	}

	got := selectByCumulativeFill(cands, 100)
	if len(got) != 2 {
		t.Fatalf("selected %d candidates, want all 2", len(got))
	}
}
