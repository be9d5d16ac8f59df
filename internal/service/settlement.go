package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// settler holds the cancellation and sell-realisation logic shared by user
// cancellation and resolver residual cleanup. All methods assume the caller
// already holds the event lock and runs inside tx.
type settler struct {
	bets   *repository.BetRepository
	queue  *repository.QueueRepository
	wallet *repository.WalletRepository
}

// applyCancel removes qty unmatched contracts from bet in memory and returns
// the refund split for the cancelled portion. The refund mirrors admission's
// reward-first debit: main funds come back first, reward funds last.
func applyCancel(bet *domain.Bet, qty int64) (mainRefund, rewardRefund decimal.Decimal, err error) {
	if qty < 1 || qty > bet.UnmatchedQuantity {
		return decimal.Zero, decimal.Zero, domain.ErrQuantityOverUnmatched
	}

	totalCancel := bet.PricePerQuantity.Mul(decimal.NewFromInt(qty))
	mainRefund, rewardRefund = domain.RefundSplit(bet.TotalPrice(), bet.RewardAmountUsed, totalCancel)

	bet.Quantity -= qty
	bet.UnmatchedQuantity -= qty
	bet.RewardAmountUsed = domain.RoundMoney(bet.RewardAmountUsed.Sub(rewardRefund))
	bet.Profit = nil
	bet.PlatformCommission = nil
	return mainRefund, rewardRefund, nil
}

// restoreParent hands qty cancelled sell contracts and their reward portion
// back to the parent buy so the contracts become sellable again.
func restoreParent(parent *domain.Bet, qty int64, rewardRefund decimal.Decimal) {
	sold := parent.Sold() - qty
	if sold < 0 {
		sold = 0
	}
	parent.SoldQuantity = &sold
	parent.RewardAmountUsed = domain.RoundMoney(parent.RewardAmountUsed.Add(rewardRefund))
}

// settleCancelledSell closes out a sell whose last unmatched portion was just
// cancelled. A matched remainder realises as a payout; with nothing matched
// the sell closes flat at zero profit and zero commission. Returns the payout
// when one was produced.
func settleCancelledSell(event *domain.Event, sell *domain.Bet) *domain.Payout {
	if sell.Quantity > 0 {
		p := realiseSell(event, sell)
		return &p
	}
	zero := decimal.Zero
	sell.Profit = &zero
	sell.PlatformCommission = &zero
	return nil
}

// realiseSell computes the payout for a fully matched sell and fills
// profit/commission on the bet in place.
func realiseSell(event *domain.Event, sell *domain.Bet) domain.Payout {
	p := domain.ComputePayout(sell.Quantity, sell.EntryPrice(), sell.PricePerQuantity,
		event.PlatformFeesPercentage, sell.RewardAmountUsed)
	profit, commission := p.Profit, p.Commission
	sell.Profit = &profit
	sell.PlatformCommission = &commission
	return p
}

// cancelTx rescinds qty unmatched contracts from bet.
//
// Sell cancellations return the cancelled quantity and its reward portion to
// the parent buy instead of the ledger; if the last unmatched portion of a
// partially filled sell is cancelled, the matched remainder is realised as a
// payout. Platform-owned bets never touch the ledger.
func (s *settler) cancelTx(ctx context.Context, tx *sqlx.Tx, event *domain.Event, bet *domain.Bet, qty int64) (*domain.Bet, error) {
	totalCancel := bet.PricePerQuantity.Mul(decimal.NewFromInt(qty))
	mainRefund, rewardRefund, err := applyCancel(bet, qty)
	if err != nil {
		return nil, err
	}

	switch bet.Type {
	case domain.BetSell:
		parent, err := s.bets.GetForUpdate(ctx, tx, *bet.BuyBetID)
		if err != nil {
			return nil, fmt.Errorf("settler.cancelTx: parent: %w", err)
		}
		restoreParent(parent, qty, rewardRefund)
		if err := s.bets.Update(ctx, tx, parent); err != nil {
			return nil, fmt.Errorf("settler.cancelTx: update parent: %w", err)
		}

		if bet.UnmatchedQuantity == 0 {
			if p := settleCancelledSell(event, bet); p != nil && bet.UserID != nil {
				row := domain.NewLedgerRow(*bet.UserID, p.CashOut, p.RewardOut,
					domain.TxForBet, bet.ID, bet.Quantity, event.Token, event.Chain)
				if err := s.wallet.Apply(ctx, tx, row); err != nil {
					return nil, fmt.Errorf("settler.cancelTx: realise: %w", err)
				}
			}
		}

	case domain.BetBuy:
		if bet.UserID != nil && totalCancel.IsPositive() {
			row := domain.NewLedgerRow(*bet.UserID, mainRefund, rewardRefund,
				domain.TxForBetCancel, bet.ID, qty, event.Token, event.Chain)
			if err := s.wallet.Apply(ctx, tx, row); err != nil {
				return nil, fmt.Errorf("settler.cancelTx: refund: %w", err)
			}
		}
	}

	if bet.UnmatchedQuantity == 0 {
		if err := s.queue.Remove(ctx, tx, bet.ID); err != nil {
			return nil, fmt.Errorf("settler.cancelTx: dequeue: %w", err)
		}
	}
	if err := s.bets.Update(ctx, tx, bet); err != nil {
		return nil, fmt.Errorf("settler.cancelTx: update: %w", err)
	}
	return bet, nil
}

// realiseSellTx settles a fully matched sell: computes the payout, fills
// profit/commission on the bet in place, and credits the proceeds on the
// ledger for user-owned sells. The caller persists the bet afterwards.
func (s *settler) realiseSellTx(ctx context.Context, tx *sqlx.Tx, event *domain.Event, sell *domain.Bet) error {
	p := realiseSell(event, sell)
	if sell.UserID == nil {
		return nil
	}
	row := domain.NewLedgerRow(*sell.UserID, p.CashOut, p.RewardOut,
		domain.TxForBet, sell.ID, sell.Quantity, event.Token, event.Chain)
	if err := s.wallet.Apply(ctx, tx, row); err != nil {
		return fmt.Errorf("settler.realiseSellTx: %w", err)
	}
	return nil
}
