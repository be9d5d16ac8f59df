package service

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// ResolutionService
// ──────────────────────────────────────────────────────────────────────────────

// ResolutionService settles completed events: cancels residual open interest
// (sells before buys, so parent bookkeeping is restored first), marks losing
// buys, pays winning buys at the win price and flips the resolved flag — all
// in one event-locked transaction per event.
type ResolutionService struct {
	store  *repository.Store
	events *repository.EventRepository
	bets   *repository.BetRepository
	queue  *repository.QueueRepository
	wallet *repository.WalletRepository
	logger *slog.Logger
	settle settler
}

// NewResolutionService creates a ResolutionService.
func NewResolutionService(
	store *repository.Store,
	events *repository.EventRepository,
	bets *repository.BetRepository,
	queue *repository.QueueRepository,
	wallet *repository.WalletRepository,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		store:  store,
		events: events,
		bets:   bets,
		queue:  queue,
		wallet: wallet,
		logger: logger,
		settle: settler{bets: bets, queue: queue, wallet: wallet},
	}
}

// Run executes one resolver tick over completed, unresolved events. A failed
// event is logged and retried on the next tick; its transaction rolled back
// whole.
func (s *ResolutionService) Run(ctx context.Context) error {
	events, err := s.events.ListUnresolvedCompleted(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := s.resolve(ctx, e.ID); err != nil {
			s.logger.Error("resolver: event failed", "event_id", e.ID, "err", err)
		}
	}
	return nil
}

// resolve settles one event.
func (s *ResolutionService) resolve(ctx context.Context, eventID string) error {
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		event, err := s.events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event.Resolved || !event.IsCompleted() {
			return nil
		}

		// ── 1. Cancel residual open interest, sells before buys ──────────────
		for _, side := range []domain.BetType{domain.BetSell, domain.BetBuy} {
			residual, err := s.bets.ListResidual(ctx, tx, eventID, side)
			if err != nil {
				return err
			}
			for _, b := range residual {
				if _, err := s.settle.cancelTx(ctx, tx, event, b, b.UnmatchedQuantity); err != nil {
					return err
				}
			}
		}

		// ── 2. No winning option yet: leave unresolved for the operator ──────
		if event.OptionWon == nil {
			s.logger.Warn("resolver: completed event has no winning option; residuals cancelled only",
				"event_id", eventID)
			return nil
		}

		// ── 3. Mark losers, pay winners ──────────────────────────────────────
		options, err := s.events.ListOptions(ctx, eventID)
		if err != nil {
			return err
		}
		var (
			settles []repository.Settlement
			ledger  []*domain.Transaction
		)
		for _, opt := range options {
			buys, err := s.bets.ListUserBuysByOption(ctx, tx, eventID, opt.ID)
			if err != nil {
				return err
			}
			if opt.ID != *event.OptionWon {
				// Losers: the stake was debited at admission; no ledger row,
				// just the realised loss on the bet.
				for _, b := range buys {
					settles = append(settles, repository.Settlement{
						BetID:      b.ID,
						Profit:     domain.RoundMoney(b.TotalPrice().Neg()),
						Commission: decimal.Zero,
					})
				}
				continue
			}
			for _, b := range buys {
				q := b.Quantity - b.Sold()
				if q < 1 {
					continue
				}
				p := domain.ComputePayout(q, b.PricePerQuantity, event.WinPrice,
					event.PlatformFeesPercentage, b.RewardAmountUsed)
				settles = append(settles, repository.Settlement{
					BetID: b.ID, Profit: p.Profit, Commission: p.Commission,
				})
				ledger = append(ledger, domain.NewLedgerRow(*b.UserID, p.CashOut, p.RewardOut,
					domain.TxForBetWin, b.ID, q, event.Token, event.Chain))
			}
		}
		if err := s.bets.SettleBatch(ctx, tx, settles); err != nil {
			return err
		}
		if err := s.wallet.ApplyBatch(ctx, tx, ledger); err != nil {
			return err
		}

		// ── 4. Terminal flip; a second pass is a no-op ───────────────────────
		if err := s.events.MarkResolved(ctx, tx, eventID); err != nil {
			return err
		}
		s.logger.Info("resolver: event resolved",
			"event_id", eventID, "option_won", *event.OptionWon,
			"winners", len(ledger), "settled", len(settles))
		return nil
	})
}
