// Package service contains the trading-core business logic: order admission
// and cancellation, the matching worker, the liquidity engine, the event
// state machine and the resolver. All money movement happens inside a single
// PostgreSQL transaction.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// BetService
// ──────────────────────────────────────────────────────────────────────────────

// BetService handles order admission, user cancellation and bet queries.
// Admission holds only the non-blocking user lock; cancellation additionally
// takes the event lock because it races the matching worker for unmatched
// quantity.
type BetService struct {
	store  *repository.Store
	events *repository.EventRepository
	bets   *repository.BetRepository
	queue  *repository.QueueRepository
	wallet *repository.WalletRepository
	settle settler
}

// NewBetService creates a BetService.
func NewBetService(
	store *repository.Store,
	events *repository.EventRepository,
	bets *repository.BetRepository,
	queue *repository.QueueRepository,
	wallet *repository.WalletRepository,
) *BetService {
	return &BetService{
		store:  store,
		events: events,
		bets:   bets,
		queue:  queue,
		wallet: wallet,
		settle: settler{bets: bets, queue: queue, wallet: wallet},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBet
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBet admits a new order: validates it against the event, debits the
// stake reward-first (buys), moves reward and sold bookkeeping from the
// parent (sells), inserts the bet and enqueues it for matching — all inside
// one transaction guarded by the user's single-flight lock.
func (s *BetService) PlaceBet(ctx context.Context, req domain.PlaceBetRequest) (*domain.Bet, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if req.UserID == "" || !req.Type.IsValid() || req.Quantity < 1 || !req.Price.IsPositive() {
		return nil, domain.ErrInvalidOrder
	}
	if req.Type == domain.BetSell && req.BuyBetID == nil {
		return nil, domain.ErrSellWithoutBuy
	}

	var bet *domain.Bet
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		// ── 2. Single-flight user guard ──────────────────────────────────────
		if err := s.store.LockUser(ctx, tx, req.UserID); err != nil {
			return err
		}

		// ── 3. Event and option checks ───────────────────────────────────────
		event, err := s.events.GetByIDTx(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		if !event.Acceptable() {
			return domain.ErrEventNotAcceptable
		}
		if req.Price.GreaterThan(event.WinPrice) {
			return domain.ErrPriceAboveWin
		}
		options, err := s.events.ListOptions(ctx, req.EventID)
		if err != nil {
			return err
		}
		if domain.PairOptions(options, req.OptionID) == nil {
			return domain.ErrOptionNotFound
		}

		now := time.Now().UTC()
		userID := req.UserID
		total := req.Price.Mul(decimal.NewFromInt(req.Quantity))
		b := &domain.Bet{
			ID:                domain.NewID(),
			EventID:           req.EventID,
			UserID:            &userID,
			OptionID:          req.OptionID,
			Type:              req.Type,
			Quantity:          req.Quantity,
			PricePerQuantity:  req.Price,
			UnmatchedQuantity: req.Quantity,
			RewardAmountUsed:  decimal.Zero,
			LimitOrder:        req.LimitOrder,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		switch req.Type {
		case domain.BetBuy:
			// ── 4a. Funds check and reward-first debit ───────────────────────
			bal, err := s.wallet.GetBalanceForUpdate(ctx, tx, req.UserID, event.Token, event.Chain)
			if err != nil {
				if errors.Is(err, domain.ErrBalanceNotFound) {
					return domain.ErrInsufficientFunds
				}
				return err
			}
			if bal.Total().LessThan(total) {
				return domain.ErrInsufficientFunds
			}
			mainUsed, rewardUsed := domain.DebitSplit(total, bal.RewardAmount)
			b.RewardAmountUsed = rewardUsed
			sold := int64(0)
			b.SoldQuantity = &sold

			if err := s.bets.Create(ctx, tx, b); err != nil {
				return err
			}
			row := domain.NewLedgerRow(req.UserID, mainUsed.Neg(), rewardUsed.Neg(),
				domain.TxForBet, b.ID, req.Quantity, event.Token, event.Chain)
			if err := s.wallet.Apply(ctx, tx, row); err != nil {
				return err
			}

		case domain.BetSell:
			// ── 4b. Parent buy bookkeeping ───────────────────────────────────
			// Row-locked: admission races the matching worker for the parent's
			// matched quantity.
			parent, err := s.bets.GetForUpdate(ctx, tx, *req.BuyBetID)
			if err != nil {
				return err
			}
			if parent.Type != domain.BetBuy ||
				parent.UserID == nil || *parent.UserID != req.UserID ||
				parent.EventID != req.EventID || parent.OptionID != req.OptionID {
				return domain.ErrParentMismatch
			}
			if req.Quantity > parent.SellableQuantity() {
				return domain.ErrOverSell
			}

			// Move reward stake from parent to child; it travels with the
			// contracts being sold and comes back out at realisation.
			childReward := total
			if parent.RewardAmountUsed.LessThan(total) {
				childReward = parent.RewardAmountUsed
			}
			parent.RewardAmountUsed = domain.RoundMoney(parent.RewardAmountUsed.Sub(childReward))
			sold := parent.Sold() + req.Quantity
			parent.SoldQuantity = &sold
			if err := s.bets.Update(ctx, tx, parent); err != nil {
				return err
			}

			b.RewardAmountUsed = childReward
			b.BuyBetID = req.BuyBetID
			parentPrice := parent.PricePerQuantity
			b.BuyBetPricePerQuantity = &parentPrice

			// No debit for sells: proceeds are issued at match time.
			if err := s.bets.Create(ctx, tx, b); err != nil {
				return err
			}
		}

		// ── 5. Hand off to the matching worker ───────────────────────────────
		if err := s.queue.Enqueue(ctx, tx, b.ID, event.ID); err != nil {
			return err
		}
		bet = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CancelBet
// ──────────────────────────────────────────────────────────────────────────────

// CancelBet rescinds unmatched quantity from the user's own bet and refunds
// the stake, main funds first and reward funds last.
func (s *BetService) CancelBet(ctx context.Context, req domain.CancelBetRequest) (*domain.Bet, error) {
	if req.UserID == "" || req.Quantity < 1 {
		return nil, domain.ErrInvalidOrder
	}

	var bet *domain.Bet
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		if err := s.store.LockEvent(ctx, tx, req.EventID); err != nil {
			return err
		}

		event, err := s.events.GetByIDTx(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		b, err := s.bets.GetForUpdate(ctx, tx, req.BetID)
		if err != nil {
			return err
		}
		// Ownership check: users only see their own bets.
		if b.UserID == nil || *b.UserID != req.UserID || b.EventID != req.EventID {
			return domain.ErrBetNotFound
		}

		bet, err = s.settle.cancelTx(ctx, tx, event, b, req.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetBet returns a single bet by id.
func (s *BetService) GetBet(ctx context.Context, id string) (*domain.Bet, error) {
	return s.bets.GetByID(ctx, id)
}

// ListBets returns a filtered, paginated bet listing.
func (s *BetService) ListBets(ctx context.Context, f domain.BetFilter, page, limit int) (*domain.Page[*domain.Bet], error) {
	return s.bets.List(ctx, f, page, limit)
}

// ListTransactions returns a user's recent ledger rows.
func (s *BetService) ListTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	return s.wallet.ListTransactions(ctx, userID, limit)
}

// GetBalance returns a user's balance for one (token, chain).
func (s *BetService) GetBalance(ctx context.Context, userID, token, chain string) (*domain.Balance, error) {
	return s.wallet.GetBalance(ctx, userID, token, chain)
}
