package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/clock"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/utils"
)

// DefaultInterval is the tick period used when none is configured
const DefaultInterval = 30 * time.Second

// Sweeper finalizes auctions whose end time has passed. Each auction is finalized
// under the same per-auction lock the bid path uses, so a sweep never races a bid.
type Sweeper struct {
	repo     repository.AuctionDB
	clock    clock.Clock
	notifier notify.Notifier
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Sweeper
type Option func(*Sweeper)

func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) { s.clock = c }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Sweeper) { s.notifier = n }
}

// WithInterval sets the tick period; non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a Sweeper over repo
func New(repo repository.AuctionDB, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		clock:    clock.Real(),
		notifier: notify.LogNotifier{},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome describes what FinalizeAuction did to one auction
type Outcome struct {
	Finalized bool
	Auction   model.Auction
	Winner    model.Bid
}

// FinalizeAuction closes a single auction if it is still active and due. It is a
// no-op for auctions already finalized or extended past now.
func (s *Sweeper) FinalizeAuction(ctx context.Context, auctionID string) (Outcome, error) {
	var out Outcome
	err := s.repo.UpdateAuction(ctx, auctionID, func(a *model.Auction, locked repository.LockedAuction) error {
		if !a.IsDueAt(s.clock.Now()) {
			out.Auction = *a
			return repository.ErrUnchanged
		}

		highest, ok, err := locked.HighestBid()
		if err != nil {
			return err
		}
		if ok {
			a.Status = model.AuctionSold
			a.CurrentWinner = highest.BidderID
			a.CurrentPrice = highest.Amount
			out.Winner = highest
		} else {
			a.Status = model.AuctionExpired
		}

		out.Finalized = true
		out.Auction = *a
		return nil
	})
	if err != nil {
		return Outcome{}, auctionerrors.Internal(fmt.Sprintf("sweeper: failed to finalize auction %s", auctionID), err)
	}

	if out.Finalized {
		s.notifyFinalized(ctx, out)
	}
	return out, nil
}

// RunOnce finalizes every due auction and returns how many were finalized.
// A failure on one auction is logged and the sweep moves on; the auction stays
// active and is picked up again on the next tick.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	now := s.clock.Now()
	ids, err := s.repo.ListDueAuctions(ctx, now)
	if err != nil {
		utils.Error("failed to list due auctions", map[string]any{"error": err.Error()})
		return 0
	}

	finalized := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		out, err := s.FinalizeAuction(ctx, id)
		if err != nil {
			utils.Error("failed to finalize auction", map[string]any{
				"auction_id": id,
				"error":      err.Error(),
			})
			continue
		}
		if out.Finalized {
			finalized++
		}
	}

	if len(ids) > 0 {
		utils.Info("expiry sweep finished", map[string]any{
			"due":       len(ids),
			"finalized": finalized,
		})
	}
	return finalized
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("expiry sweeper started", map[string]any{"interval": s.interval.String()})
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			utils.Info("expiry sweeper stopped", nil)
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Start runs the sweeper in the background until Stop is called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels a started sweeper and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) notifyFinalized(ctx context.Context, out Outcome) {
	a := out.Auction
	event := notify.Event{
		AuctionID:  a.AuctionID,
		OccurredAt: s.clock.Now(),
	}

	switch a.Status {
	case model.AuctionSold:
		event.Type = notify.EventAuctionSold
		event.Recipients = []string{a.CurrentWinner, a.SellerID}
		event.Data = map[string]any{
			"winner_id":   a.CurrentWinner,
			"final_price": a.CurrentPrice.String(),
		}
	case model.AuctionExpired:
		event.Type = notify.EventAuctionExpired
		event.Recipients = []string{a.SellerID}
	default:
		return
	}
	notify.Send(ctx, s.notifier, event)
}
