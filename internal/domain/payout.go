package domain

import "github.com/shopspring/decimal"

// moneyScale is the fixed scale used for ledger amounts, matching the
// database DECIMAL(30,4) columns.
const moneyScale = 4

// RoundMoney rounds a decimal to the ledger scale, half to even.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(moneyScale)
}

// Payout is the result of realising a position: a sell fill, a sell
// cancellation of the last unmatched portion, or a winning buy at resolution.
type Payout struct {
	Profit     decimal.Decimal // gross minus realised commission; negative on a loss
	Commission decimal.Decimal // commission actually withheld (zero on a loss)
	CashOut    decimal.Decimal // main-ledger credit
	RewardOut  decimal.Decimal // reward-ledger credit (the reward stake returned)
}

// ComputePayout settles quantity contracts entered at entryPrice and exited
// at exitPrice, with feePercent platform commission and rewardUsed reward
// stake.
//
//	gross      = Q*exit - Q*entry
//	commission = Q*exit*fee/100 when gross is positive, else 0
//	profit     = gross - commission, except that commission may not turn a
//	             win into a loss: if it would, the commission is waived and
//	             profit = gross
//	cashOut    = Q*exit - realisedCommission - rewardUsed
//
// The reward stake is always returned on the reward ledger, never on main.
func ComputePayout(quantity int64, entryPrice, exitPrice, feePercent, rewardUsed decimal.Decimal) Payout {
	q := decimal.NewFromInt(quantity)
	proceeds := q.Mul(exitPrice)
	gross := proceeds.Sub(q.Mul(entryPrice))

	commission := decimal.Zero
	if gross.IsPositive() {
		commission = proceeds.Mul(feePercent).Div(decimal.NewFromInt(100))
	}

	profit := gross.Sub(commission)
	if profit.IsNegative() {
		profit = gross
	}

	realisedCommission := commission
	if profit.Equal(gross) {
		realisedCommission = decimal.Zero
	}

	cashOut := proceeds.Sub(realisedCommission).Sub(rewardUsed)

	return Payout{
		Profit:     RoundMoney(profit),
		Commission: RoundMoney(realisedCommission),
		CashOut:    RoundMoney(cashOut),
		RewardOut:  RoundMoney(rewardUsed),
	}
}

// RefundSplit computes the (main, reward) portions of a cancellation refund.
// The mirror of reward-first debiting: main refunds first, reward last.
//
//	totalCancel  = price * cancelQty
//	mainPortion  = totalPrice - rewardUsed (the bet's main-ledger stake)
//	rewardRefund = max(0, totalCancel - mainPortion), capped at rewardUsed
//	mainRefund   = totalCancel - rewardRefund
func RefundSplit(totalPrice, rewardUsed, totalCancel decimal.Decimal) (mainRefund, rewardRefund decimal.Decimal) {
	mainPortion := totalPrice.Sub(rewardUsed)
	rewardRefund = totalCancel.Sub(mainPortion)
	if rewardRefund.IsNegative() {
		rewardRefund = decimal.Zero
	}
	if rewardRefund.GreaterThan(rewardUsed) {
		rewardRefund = rewardUsed
	}
	mainRefund = totalCancel.Sub(rewardRefund)
	return RoundMoney(mainRefund), RoundMoney(rewardRefund)
}

// DebitSplit computes the (main, reward) portions of an admission debit.
// Reward-first: rewardUsed = min(total, rewardBalance).
func DebitSplit(total, rewardBalance decimal.Decimal) (mainUsed, rewardUsed decimal.Decimal) {
	rewardUsed = total
	if rewardBalance.LessThan(total) {
		rewardUsed = rewardBalance
	}
	if rewardUsed.IsNegative() {
		rewardUsed = decimal.Zero
	}
	mainUsed = total.Sub(rewardUsed)
	return RoundMoney(mainUsed), RoundMoney(rewardUsed)
}
