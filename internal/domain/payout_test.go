package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ── ComputePayout ─────────────────────────────────────────────────────────────

func TestComputePayoutNoFees(t *testing.T) {
	// 4 contracts entered at 60, sold at 70, no commission.
	p := domain.ComputePayout(4, d("60"), d("70"), decimal.Zero, decimal.Zero)

	if !p.Profit.Equal(d("40")) {
		t.Errorf("profit = %s, want 40", p.Profit)
	}
	if !p.Commission.IsZero() {
		t.Errorf("commission = %s, want 0", p.Commission)
	}
	if !p.CashOut.Equal(d("280")) {
		t.Errorf("cashOut = %s, want 280", p.CashOut)
	}
}

func TestComputePayoutWithCommission(t *testing.T) {
	// 10 contracts entered at 50, sold at 80, 10% fee on proceeds.
	p := domain.ComputePayout(10, d("50"), d("80"), d("10"), decimal.Zero)

	if !p.Profit.Equal(d("220")) {
		t.Errorf("profit = %s, want 220", p.Profit)
	}
	if !p.Commission.Equal(d("80")) {
		t.Errorf("commission = %s, want 80", p.Commission)
	}
	if !p.CashOut.Equal(d("720")) {
		t.Errorf("cashOut = %s, want 720", p.CashOut)
	}
}

func TestComputePayoutLossSkipsCommission(t *testing.T) {
	// Selling below entry: the loss is returned whole, no commission taken.
	p := domain.ComputePayout(10, d("80"), d("50"), d("10"), decimal.Zero)

	if !p.Profit.Equal(d("-300")) {
		t.Errorf("profit = %s, want -300", p.Profit)
	}
	if !p.Commission.IsZero() {
		t.Errorf("commission = %s, want 0", p.Commission)
	}
	// Full proceeds come back; the loss was baked into the admission debit.
	if !p.CashOut.Equal(d("500")) {
		t.Errorf("cashOut = %s, want 500", p.CashOut)
	}
}

func TestComputePayoutCommissionNeverFlipsWin(t *testing.T) {
	// Gross +1, commission would be 10: the commission is waived rather than
	// turning the win into a loss.
	p := domain.ComputePayout(1, d("99"), d("100"), d("10"), decimal.Zero)

	if !p.Profit.Equal(d("1")) {
		t.Errorf("profit = %s, want 1", p.Profit)
	}
	if !p.Commission.IsZero() {
		t.Errorf("commission = %s, want 0 (waived)", p.Commission)
	}
	if !p.CashOut.Equal(d("100")) {
		t.Errorf("cashOut = %s, want 100", p.CashOut)
	}
}

func TestComputePayoutReturnsRewardOnRewardLedger(t *testing.T) {
	// A 50-unit reward stake travels back on the reward ledger, never on main.
	p := domain.ComputePayout(4, d("60"), d("70"), decimal.Zero, d("50"))

	if !p.CashOut.Equal(d("230")) {
		t.Errorf("cashOut = %s, want 230", p.CashOut)
	}
	if !p.RewardOut.Equal(d("50")) {
		t.Errorf("rewardOut = %s, want 50", p.RewardOut)
	}
}

// ── RefundSplit ───────────────────────────────────────────────────────────────

func TestRefundSplit(t *testing.T) {
	// A 10@60 buy with 100 reward stake: total 600, main portion 500.
	total := d("600")
	reward := d("100")

	tests := []struct {
		name        string
		totalCancel decimal.Decimal
		wantMain    decimal.Decimal
		wantReward  decimal.Decimal
	}{
		{"main covers it", d("300"), d("300"), d("0")},
		{"crosses into reward", d("540"), d("500"), d("40")},
		{"full cancel", d("600"), d("500"), d("100")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, rw := domain.RefundSplit(total, reward, tt.totalCancel)
			if !main.Equal(tt.wantMain) {
				t.Errorf("mainRefund = %s, want %s", main, tt.wantMain)
			}
			if !rw.Equal(tt.wantReward) {
				t.Errorf("rewardRefund = %s, want %s", rw, tt.wantReward)
			}
		})
	}
}

func TestRefundSplitCapsAtRewardUsed(t *testing.T) {
	// Degenerate bookkeeping can never refund more reward than was staked.
	main, rw := domain.RefundSplit(d("100"), d("30"), d("100"))
	if !rw.Equal(d("30")) {
		t.Errorf("rewardRefund = %s, want 30", rw)
	}
	if !main.Equal(d("70")) {
		t.Errorf("mainRefund = %s, want 70", main)
	}
}

// ── DebitSplit ────────────────────────────────────────────────────────────────

func TestDebitSplitRewardFirst(t *testing.T) {
	tests := []struct {
		name       string
		total      decimal.Decimal
		rewardBal  decimal.Decimal
		wantMain   decimal.Decimal
		wantReward decimal.Decimal
	}{
		{"reward partially covers", d("100"), d("30"), d("70"), d("30")},
		{"reward covers fully", d("100"), d("150"), d("0"), d("100")},
		{"no reward", d("100"), d("0"), d("100"), d("0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, rw := domain.DebitSplit(tt.total, tt.rewardBal)
			if !main.Equal(tt.wantMain) {
				t.Errorf("mainUsed = %s, want %s", main, tt.wantMain)
			}
			if !rw.Equal(tt.wantReward) {
				t.Errorf("rewardUsed = %s, want %s", rw, tt.wantReward)
			}
		})
	}
}

// ── RoundMoney ────────────────────────────────────────────────────────────────

func TestRoundMoneyHalfToEven(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2.00005", "2"},      // tie rounds to even
		{"2.00015", "2.0002"}, // tie rounds to even
		{"2.00006", "2.0001"},
		{"-2.00005", "-2"},
	}
	for _, tt := range tests {
		got := domain.RoundMoney(d(tt.in))
		if !got.Equal(d(tt.want)) {
			t.Errorf("RoundMoney(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
