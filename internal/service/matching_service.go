package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/predikto/tradecore/internal/config"
	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// MatchingService
// ──────────────────────────────────────────────────────────────────────────────

// MatchingService is the sole consumer of the bet queue. Each tick it takes a
// snapshot of pending entries, groups them by event and processes the groups
// concurrently; within a group entries run in arrival order under the event
// lock.
type MatchingService struct {
	store  *repository.Store
	events *repository.EventRepository
	bets   *repository.BetRepository
	queue  *repository.QueueRepository
	wallet *repository.WalletRepository
	cfg    *config.Config
	logger *slog.Logger
}

// NewMatchingService creates a MatchingService.
func NewMatchingService(
	store *repository.Store,
	events *repository.EventRepository,
	bets *repository.BetRepository,
	queue *repository.QueueRepository,
	wallet *repository.WalletRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *MatchingService {
	return &MatchingService{
		store:  store,
		events: events,
		bets:   bets,
		queue:  queue,
		wallet: wallet,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes one matching tick. A failed entry is logged and left in the
// queue; the next tick retries it naturally.
func (s *MatchingService) Run(ctx context.Context) error {
	entries, err := s.queue.Snapshot(ctx, s.cfg.Worker.QueueBatch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	// Group by event, preserving arrival order within and across groups.
	groups := make(map[string][]*domain.QueueEntry)
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.EventID]; !ok {
			order = append(order, e.EventID)
		}
		groups[e.EventID] = append(groups[e.EventID], e)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Worker.MatchFanout)
	for _, eventID := range order {
		batch := groups[eventID]
		g.Go(func() error {
			for _, entry := range batch {
				if err := s.matchOne(gctx, entry.BetID, entry.EventID); err != nil {
					s.logger.Error("matching: entry failed",
						"bet_id", entry.BetID, "event_id", entry.EventID, "err", err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// matchOne processes a single queue entry inside its own event-locked
// transaction.
func (s *MatchingService) matchOne(ctx context.Context, betID, eventID string) error {
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.LockEvent(ctx, tx, eventID); err != nil {
			return err
		}

		// ── 1. Reload bet and event post-lock ────────────────────────────────
		// Row-locked: sell admission runs under the user lock only and can
		// commit sold/reward bookkeeping on this row concurrently; a plain
		// read here would let the full-row write below restore stale values.
		taker, err := s.bets.GetForUpdate(ctx, tx, betID)
		if err != nil {
			if errors.Is(err, domain.ErrBetNotFound) {
				return s.queue.Remove(ctx, tx, betID)
			}
			return err
		}
		event, err := s.events.GetByIDTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		// No matching post-completion; the resolver owns the event now.
		if event.IsCompleted() || taker.UnmatchedQuantity == 0 {
			return s.queue.Remove(ctx, tx, betID)
		}

		// ── 2. Candidate selection ───────────────────────────────────────────
		candidates, err := s.candidates(ctx, tx, event, taker)
		if err != nil {
			return err
		}
		selected := selectByCumulativeFill(candidates, taker.UnmatchedQuantity)

		// ── 3. Walk candidates and record fills ──────────────────────────────
		now := time.Now().UTC()
		remaining := taker.UnmatchedQuantity
		var (
			pairs   []*domain.Matched
			deltas  []repository.UnmatchedDelta
			settles []repository.Settlement
			ledger  []*domain.Transaction
		)
		for _, c := range selected {
			if remaining == 0 {
				break
			}
			filled := min(remaining, c.UnmatchedQuantity)
			pairs = append(pairs, &domain.Matched{
				BetID:         taker.ID,
				MatchedBetID:  c.ID,
				Quantity:      filled,
				LiquidityUsed: decimal.Zero,
				CreatedAt:     now,
			})
			deltas = append(deltas, repository.UnmatchedDelta{BetID: c.ID, Qty: filled})
			c.UnmatchedQuantity -= filled
			remaining -= filled

			// A user sell filled to zero realises immediately.
			if c.Type == domain.BetSell && c.UnmatchedQuantity == 0 && c.UserID != nil {
				p := domain.ComputePayout(c.Quantity, c.EntryPrice(), c.PricePerQuantity,
					event.PlatformFeesPercentage, c.RewardAmountUsed)
				settles = append(settles, repository.Settlement{
					BetID: c.ID, Profit: p.Profit, Commission: p.Commission,
				})
				ledger = append(ledger, domain.NewLedgerRow(*c.UserID, p.CashOut, p.RewardOut,
					domain.TxForBet, c.ID, c.Quantity, event.Token, event.Chain))
			}
		}

		if len(pairs) > 0 {
			if err := s.bets.InsertMatched(ctx, tx, pairs); err != nil {
				return err
			}
			if err := s.bets.DecrementUnmatchedBatch(ctx, tx, deltas); err != nil {
				return err
			}
		}

		// ── 4. Settle the taker ──────────────────────────────────────────────
		taker.UnmatchedQuantity = remaining
		if taker.Type == domain.BetSell && remaining == 0 && taker.UserID != nil {
			p := domain.ComputePayout(taker.Quantity, taker.EntryPrice(), taker.PricePerQuantity,
				event.PlatformFeesPercentage, taker.RewardAmountUsed)
			profit, commission := p.Profit, p.Commission
			taker.Profit = &profit
			taker.PlatformCommission = &commission
			ledger = append(ledger, domain.NewLedgerRow(*taker.UserID, p.CashOut, p.RewardOut,
				domain.TxForBet, taker.ID, taker.Quantity, event.Token, event.Chain))
		}
		if err := s.bets.Update(ctx, tx, taker); err != nil {
			return err
		}
		if err := s.bets.SettleBatch(ctx, tx, settles); err != nil {
			return err
		}
		if err := s.wallet.ApplyBatch(ctx, tx, ledger); err != nil {
			return err
		}

		// ── 5. Done with this entry ──────────────────────────────────────────
		return s.queue.Remove(ctx, tx, betID)
	})
}

// candidates builds the counter-order set for a taker.
//
// A user buy on option X at price p matches either cross-side buys on the
// sibling option near winPrice−p (the two stakes together total winPrice) or
// sells on X near p. A sell — and any platform-owned taker — matches only
// user-owned buys on the same option; the platform never matches its own
// inventory.
func (s *MatchingService) candidates(ctx context.Context, tx *sqlx.Tx, event *domain.Event, taker *domain.Bet) ([]*domain.Bet, error) {
	p := taker.PricePerQuantity

	if taker.Type == domain.BetSell || taker.IsPlatform() {
		return s.bets.Candidates(ctx, tx, event.ID, taker.OptionID,
			domain.BetBuy, p, event.Slippage, taker.ID, true)
	}

	options, err := s.events.ListOptions(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	pair := domain.PairOptions(options, taker.OptionID)
	if pair == nil {
		return nil, domain.ErrOptionNotFound
	}

	cross, err := s.bets.Candidates(ctx, tx, event.ID, pair.Other.ID,
		domain.BetBuy, event.WinPrice.Sub(p), event.Slippage, taker.ID, false)
	if err != nil {
		return nil, err
	}
	sells, err := s.bets.Candidates(ctx, tx, event.ID, taker.OptionID,
		domain.BetSell, p, event.Slippage, taker.ID, false)
	if err != nil {
		return nil, err
	}

	merged := append(cross, sells...)
	sortCandidates(merged)
	return merged, nil
}

// sortCandidates orders by total price descending, then age ascending.
// Larger standing intents fill first; age breaks ties.
func sortCandidates(bets []*domain.Bet) {
	sort.SliceStable(bets, func(i, j int) bool {
		ti, tj := bets[i].TotalPrice(), bets[j].TotalPrice()
		if !ti.Equal(tj) {
			return ti.GreaterThan(tj)
		}
		return bets[i].CreatedAt.Before(bets[j].CreatedAt)
	})
}

// selectByCumulativeFill takes candidates while their cumulative unmatched
// quantity stays at or under want, plus the first one that crosses it — that
// last candidate fills partially.
func selectByCumulativeFill(candidates []*domain.Bet, want int64) []*domain.Bet {
	var (
		out []*domain.Bet
		cum int64
	)
	for _, c := range candidates {
		if c.UnmatchedQuantity <= 0 {
			continue
		}
		out = append(out, c)
		cum += c.UnmatchedQuantity
		if cum >= want {
			break
		}
	}
	return out
}
