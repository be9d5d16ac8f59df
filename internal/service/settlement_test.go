package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyCancelRefundsMainFirst(t *testing.T) {
	bet := mkBet("b1", "60", 10, 9, 0)
	bet.Type = domain.BetBuy
	bet.RewardAmountUsed = d("100")

	mainRefund, rewardRefund, err := applyCancel(bet, 5)
	if err != nil {
		t.Fatalf("applyCancel: %v", err)
	}
	// total 600, main stake 500; cancelling 300 comes entirely from main.
	if !mainRefund.Equal(d("300")) || !rewardRefund.IsZero() {
		t.Errorf("refund = (%s, %s), want (300, 0)", mainRefund, rewardRefund)
	}
	if bet.Quantity != 5 || bet.UnmatchedQuantity != 4 {
		t.Errorf("bet = %d/%d unmatched, want 5/4", bet.Quantity, bet.UnmatchedQuantity)
	}
	if !bet.RewardAmountUsed.Equal(d("100")) {
		t.Errorf("rewardAmountUsed = %s, want 100 untouched", bet.RewardAmountUsed)
	}
}

func TestApplyCancelReachesIntoReward(t *testing.T) {
	bet := mkBet("b1", "60", 10, 10, 0)
	bet.Type = domain.BetBuy
	bet.RewardAmountUsed = d("100")

	mainRefund, rewardRefund, err := applyCancel(bet, 9)
	if err != nil {
		t.Fatalf("applyCancel: %v", err)
	}
	// cancelling 540 exhausts the 500 main stake and takes 40 from reward.
	if !mainRefund.Equal(d("500")) || !rewardRefund.Equal(d("40")) {
		t.Errorf("refund = (%s, %s), want (500, 40)", mainRefund, rewardRefund)
	}
	if !bet.RewardAmountUsed.Equal(d("60")) {
		t.Errorf("rewardAmountUsed = %s, want 60", bet.RewardAmountUsed)
	}
}

func TestApplyCancelRejectsOverUnmatched(t *testing.T) {
	bet := mkBet("b1", "60", 10, 3, 0)
	bet.RewardAmountUsed = d("100")

	_, _, err := applyCancel(bet, 4)
	if !errors.Is(err, domain.ErrQuantityOverUnmatched) {
		t.Fatalf("err = %v, want ErrQuantityOverUnmatched", err)
	}
	if bet.Quantity != 10 || bet.UnmatchedQuantity != 3 || !bet.RewardAmountUsed.Equal(d("100")) {
		t.Error("rejected cancel must leave the bet untouched")
	}
}

func TestRestoreParentReturnsSoldAndReward(t *testing.T) {
	sold := int64(7)
	parent := mkBet("p1", "50", 10, 0, 0)
	parent.Type = domain.BetBuy
	parent.SoldQuantity = &sold
	parent.RewardAmountUsed = d("40")

	restoreParent(parent, 3, d("25"))

	if got := parent.Sold(); got != 4 {
		t.Errorf("sold = %d, want 4", got)
	}
	if !parent.RewardAmountUsed.Equal(d("65")) {
		t.Errorf("rewardAmountUsed = %s, want 65", parent.RewardAmountUsed)
	}
	// A fully matched parent resolves on quantity minus sold.
	if got := parent.Quantity - parent.Sold(); got != 6 {
		t.Errorf("resolvable quantity = %d, want 6", got)
	}
}

func TestRestoreParentFloorsSoldAtZero(t *testing.T) {
	sold := int64(2)
	parent := mkBet("p1", "50", 10, 8, 0)
	parent.SoldQuantity = &sold

	restoreParent(parent, 5, decimal.Zero)

	if got := parent.Sold(); got != 0 {
		t.Errorf("sold = %d, want 0", got)
	}
}

func TestCancelLastUnmatchedSellRealisesRemainder(t *testing.T) {
	entry := d("50")
	sell := mkBet("s1", "70", 7, 3, 0)
	sell.Type = domain.BetSell
	sell.BuyBetPricePerQuantity = &entry
	event := &domain.Event{PlatformFeesPercentage: decimal.Zero}

	if _, _, err := applyCancel(sell, 3); err != nil {
		t.Fatalf("applyCancel: %v", err)
	}
	p := settleCancelledSell(event, sell)

	if p == nil {
		t.Fatal("matched remainder must produce a payout")
	}
	// 4 contracts entered at 50, exited at 70.
	if !p.Profit.Equal(d("80")) || !p.CashOut.Equal(d("280")) {
		t.Errorf("payout = profit %s cashOut %s, want 80 / 280", p.Profit, p.CashOut)
	}
	if sell.Profit == nil || !sell.Profit.Equal(d("80")) {
		t.Errorf("bet profit not filled in, got %v", sell.Profit)
	}
	if sell.PlatformCommission == nil || !sell.PlatformCommission.IsZero() {
		t.Errorf("commission = %v, want 0", sell.PlatformCommission)
	}
}

func TestCancelLastUnmatchedSellWithholdsCommission(t *testing.T) {
	entry := d("50")
	sell := mkBet("s1", "80", 10, 2, 0)
	sell.Type = domain.BetSell
	sell.BuyBetPricePerQuantity = &entry
	event := &domain.Event{PlatformFeesPercentage: d("10")}

	if _, _, err := applyCancel(sell, 2); err != nil {
		t.Fatalf("applyCancel: %v", err)
	}
	p := settleCancelledSell(event, sell)

	// 8 contracts: proceeds 640, gross 240, commission 64.
	if p == nil || !p.Profit.Equal(d("176")) || !p.Commission.Equal(d("64")) {
		t.Fatalf("payout = %+v, want profit 176 commission 64", p)
	}
}

func TestCancelFullyUnmatchedSellClosesFlat(t *testing.T) {
	entry := d("50")
	sell := mkBet("s1", "70", 3, 3, 0)
	sell.Type = domain.BetSell
	sell.BuyBetPricePerQuantity = &entry
	event := &domain.Event{PlatformFeesPercentage: d("10")}

	if _, _, err := applyCancel(sell, 3); err != nil {
		t.Fatalf("applyCancel: %v", err)
	}
	p := settleCancelledSell(event, sell)

	if p != nil {
		t.Fatal("nothing matched, no payout expected")
	}
	if sell.Profit == nil || !sell.Profit.IsZero() {
		t.Errorf("profit = %v, want 0", sell.Profit)
	}
	if sell.PlatformCommission == nil || !sell.PlatformCommission.IsZero() {
		t.Errorf("commission = %v, want 0", sell.PlatformCommission)
	}
}
