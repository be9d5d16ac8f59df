package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/config"
	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// LiquidityService
// ──────────────────────────────────────────────────────────────────────────────

// LiquidityService backstops aging user orders with the event's platform
// liquidity reserve. For each eligible bet it synthesizes a platform-owned
// counter buy (immediately matched against the user order) plus a mirrored
// platform sell that re-offers the synthesized inventory to future takers
// through the bet queue.
type LiquidityService struct {
	store  *repository.Store
	events *repository.EventRepository
	bets   *repository.BetRepository
	queue  *repository.QueueRepository
	wallet *repository.WalletRepository
	cfg    *config.Config
	logger *slog.Logger
	settle settler
}

// NewLiquidityService creates a LiquidityService.
func NewLiquidityService(
	store *repository.Store,
	events *repository.EventRepository,
	bets *repository.BetRepository,
	queue *repository.QueueRepository,
	wallet *repository.WalletRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		store:  store,
		events: events,
		bets:   bets,
		queue:  queue,
		wallet: wallet,
		cfg:    cfg,
		logger: logger,
		settle: settler{bets: bets, queue: queue, wallet: wallet},
	}
}

// Run executes one liquidity tick over bets that have sat unmatched longer
// than the aging threshold. Per-bet failures are logged and skipped; the bet
// stays eligible for the next tick.
func (s *LiquidityService) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.Worker.LiquidityAge)
	bets, err := s.bets.ListAgingUnmatched(ctx, cutoff, s.cfg.Worker.LiquidityBatch)
	if err != nil {
		return err
	}
	for _, b := range bets {
		if err := s.backstop(ctx, b.ID, b.EventID); err != nil {
			s.logger.Error("liquidity: backstop failed",
				"bet_id", b.ID, "event_id", b.EventID, "err", err)
		}
	}
	return nil
}

// backstop synthesizes platform counter-orders for one aging bet inside an
// event-locked transaction. Everything is re-checked post-lock: the bet may
// have matched, the event may have frozen, the reserve may have drained.
func (s *LiquidityService) backstop(ctx context.Context, betID, eventID string) error {
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockEvent(ctx, tx, eventID); err != nil {
			return err
		}

		// ── 1. Re-check eligibility post-lock ────────────────────────────────
		event, err := s.events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.Acceptable() {
			return nil
		}
		// Row-locked for the same reason matching locks its taker: sell
		// admission mutates this row's sold/reward under the user lock only,
		// and the full-row write below must not clobber it.
		bet, err := s.bets.GetForUpdate(ctx, tx, betID)
		if err != nil {
			return err
		}
		if bet.UnmatchedQuantity == 0 || bet.IsPlatform() {
			return nil
		}
		if !event.InLiquidityBand(bet.PricePerQuantity) {
			return nil
		}

		counterPrice := event.CounterPrice(bet)
		if !counterPrice.IsPositive() || counterPrice.GreaterThan(event.PlatformLiquidityLeft) {
			return nil
		}

		// The platform takes the sibling side of a buy and the same side's
		// inventory for a sell.
		counterOptionID := bet.OptionID
		if bet.Type == domain.BetBuy {
			options, err := s.events.ListOptions(ctx, eventID)
			if err != nil {
				return err
			}
			pair := domain.PairOptions(options, bet.OptionID)
			if pair == nil {
				return domain.ErrOptionNotFound
			}
			counterOptionID = pair.Other.ID
		}

		// ── 2. Size the fill against the reserve ─────────────────────────────
		affordable := event.PlatformLiquidityLeft.Div(counterPrice).Floor().IntPart()
		qty := min(bet.UnmatchedQuantity, affordable)
		if qty < 1 {
			return nil
		}
		spend := domain.RoundMoney(counterPrice.Mul(decimal.NewFromInt(qty)))
		now := time.Now().UTC()

		// ── 3. Synthetic platform buy, born fully matched and fully sold ─────
		sold := qty
		synthBuy := &domain.Bet{
			ID:                domain.NewID(),
			EventID:           eventID,
			UserID:            nil,
			OptionID:          counterOptionID,
			Type:              domain.BetBuy,
			Quantity:          qty,
			PricePerQuantity:  counterPrice,
			UnmatchedQuantity: 0,
			RewardAmountUsed:  decimal.Zero,
			SoldQuantity:      &sold,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.bets.Create(ctx, tx, synthBuy); err != nil {
			return err
		}
		if err := s.bets.InsertMatched(ctx, tx, []*domain.Matched{{
			BetID:         bet.ID,
			MatchedBetID:  synthBuy.ID,
			Quantity:      qty,
			LiquidityUsed: spend,
			CreatedAt:     now,
		}}); err != nil {
			return err
		}

		bet.UnmatchedQuantity -= qty
		if bet.Type == domain.BetSell && bet.UnmatchedQuantity == 0 && bet.UserID != nil {
			if err := s.settle.realiseSellTx(ctx, tx, event, bet); err != nil {
				return err
			}
		}
		if err := s.bets.Update(ctx, tx, bet); err != nil {
			return err
		}
		if bet.UnmatchedQuantity == 0 {
			if err := s.queue.Remove(ctx, tx, bet.ID); err != nil {
				return err
			}
		}
		if err := s.events.SpendLiquidity(ctx, tx, eventID, spend); err != nil {
			return err
		}

		// ── 4. Mirrored platform sell re-offers the inventory ────────────────
		// The mirror lives on the synthetic buy's option, not the aging bet's:
		// a sell always references a buy of the same owner, event and option,
		// and the inventory being re-offered is the synthetic buy's.
		mirrorPrice := counterPrice
		mirror := &domain.Bet{
			ID:                     domain.NewID(),
			EventID:                eventID,
			UserID:                 nil,
			OptionID:               counterOptionID,
			Type:                   domain.BetSell,
			Quantity:               qty,
			PricePerQuantity:       counterPrice,
			UnmatchedQuantity:      qty,
			RewardAmountUsed:       decimal.Zero,
			BuyBetID:               &synthBuy.ID,
			BuyBetPricePerQuantity: &mirrorPrice,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := s.bets.Create(ctx, tx, mirror); err != nil {
			return err
		}
		if err := s.queue.Enqueue(ctx, tx, mirror.ID, eventID); err != nil {
			return err
		}

		s.logger.Info("liquidity: synthesized counter-orders",
			"event_id", eventID, "bet_id", bet.ID,
			"quantity", qty, "counter_price", counterPrice, "spent", spend)
		return nil
	})
}
