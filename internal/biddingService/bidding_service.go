package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/clock"
	"auction-engine/internal/config"
	"auction-engine/internal/eligibility"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

// minimumUnit is the smallest increment over the current price when an auction has no step.
var minimumUnit = decimal.New(1, -2)

// BiddingService validates and applies bids against the auction ledger
type BiddingService struct {
	repo        repository.AuctionDB
	clock       clock.Clock
	settings    config.AuctionSettings
	eligibility eligibility.Policy
	notifier    notify.Notifier
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock overrides the wall clock
func WithClock(c clock.Clock) Option {
	return func(s *BiddingService) { s.clock = c }
}

// WithSettings sets the auto-extension settings provider
func WithSettings(settings config.AuctionSettings) Option {
	return func(s *BiddingService) { s.settings = settings }
}

// WithEligibility sets the bidder eligibility policy
func WithEligibility(p eligibility.Policy) Option {
	return func(s *BiddingService) { s.eligibility = p }
}

// WithNotifier sets the notification port
func WithNotifier(n notify.Notifier) Option {
	return func(s *BiddingService) { s.notifier = n }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:        repo,
		clock:       clock.Real(),
		settings:    config.DefaultSettings(),
		eligibility: eligibility.AllowAll{},
		notifier:    notify.LogNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuctionInput describes a new listing
type CreateAuctionInput struct {
	SellerID        string
	Title           string
	Description     string
	StartingPrice   decimal.Decimal
	StepPrice       decimal.Decimal
	BuyNowPrice     *decimal.Decimal
	StartTime       time.Time
	EndTime         time.Time
	AutoExtend      bool
	RestrictBidders bool
}

// CreateAuction validates and stores a new active auction owned by the seller
func (s *BiddingService) CreateAuction(ctx context.Context, in CreateAuctionInput) (models.Auction, error) {
	now := s.clock.Now()
	if err := validateAuctionInput(in, now); err != nil {
		return models.Auction{}, err
	}

	start := in.StartTime
	if start.IsZero() {
		start = now
	}

	auction := models.Auction{
		AuctionID:       utils.GenerateID(),
		SellerID:        in.SellerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		StartingPrice:   in.StartingPrice,
		CurrentPrice:    in.StartingPrice,
		StepPrice:       in.StepPrice,
		BuyNowPrice:     in.BuyNowPrice,
		StartTime:       start.UTC(),
		EndTime:         in.EndTime.UTC(),
		Status:          models.AuctionActive,
		AutoExtend:      in.AutoExtend,
		RestrictBidders: in.RestrictBidders,
		CreatedAt:       now,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, auctionerrors.Internal(fmt.Sprintf("service: failed to create auction for seller %s", in.SellerID), err)
	}
	return auction, nil
}

// validateAuctionInput checks the listing invariants before anything is stored
func validateAuctionInput(in CreateAuctionInput, now time.Time) error {
	switch {
	case in.SellerID == "":
		return fmt.Errorf("service: %w - missing seller ID", auctionerrors.ErrInvalidAuction)
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("service: %w - missing title", auctionerrors.ErrInvalidAuction)
	case in.StartingPrice.IsNegative():
		return fmt.Errorf("service: %w - negative starting price", auctionerrors.ErrInvalidAuction)
	case in.StepPrice.IsNegative():
		return fmt.Errorf("service: %w - negative step price", auctionerrors.ErrInvalidAuction)
	case in.BuyNowPrice != nil && in.BuyNowPrice.LessThan(in.StartingPrice):
		return fmt.Errorf("service: %w - buy now price below starting price", auctionerrors.ErrInvalidAuction)
	case !in.EndTime.After(now):
		return fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidAuction)
	case !in.StartTime.IsZero() && !in.EndTime.After(in.StartTime):
		return fmt.Errorf("service: %w - end time must follow start time", auctionerrors.ErrInvalidAuction)
	}
	return nil
}

// PlaceBid validates a bid and commits it atomically with the auction's price, winner and end time
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error) {
	if err := validateBidInput(auctionID, bidderID, amount); err != nil {
		return models.BidResult{}, err
	}

	var result models.BidResult
	err := s.repo.UpdateAuction(ctx, auctionID, func(a *models.Auction, locked repository.LockedAuction) error {
		now := s.clock.Now()
		if err := s.checkBid(ctx, *a, bidderID, amount, now); err != nil {
			return err
		}

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: a.AuctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}
		if err := locked.AppendBid(bid); err != nil {
			return err
		}

		result.PreviousEndTime = a.EndTime
		result.PreviousWinner = a.CurrentWinner

		a.CurrentPrice = amount
		a.CurrentWinner = bidderID
		result.Extended = s.extendIfLate(a, now)

		result.Bid = bid
		result.Auction = *a
		return nil
	})
	if err != nil {
		return models.BidResult{}, auctionerrors.Internal(fmt.Sprintf("service: failed to place bid on auction %s by user %s", auctionID, bidderID), err)
	}

	if result.Extended {
		utils.Info("auction end time extended", map[string]any{
			"auction_id":   auctionID,
			"old_end_time": result.PreviousEndTime.Format(time.RFC3339),
			"new_end_time": result.Auction.EndTime.Format(time.RFC3339),
		})
	}
	s.notifyBid(ctx, result)
	return result, nil
}

// validateBidInput checks request shape before the auction is touched
func validateBidInput(auctionID, bidderID string, amount decimal.Decimal) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	return nil
}

// checkBid applies the business rules in order; the first failing rule wins
func (s *BiddingService) checkBid(ctx context.Context, a models.Auction, bidderID string, amount decimal.Decimal, now time.Time) error {
	if !a.IsOpenAt(now) {
		return fmt.Errorf("service: %w - auction %s is %s, ends at %s", auctionerrors.ErrAuctionClosed, a.AuctionID, a.Status, a.EndTime.Format(time.RFC3339))
	}
	if bidderID == a.SellerID {
		return fmt.Errorf("service: %w", auctionerrors.ErrSelfBid)
	}

	banned, err := s.repo.IsBanned(ctx, a.AuctionID, bidderID)
	if err != nil {
		return auctionerrors.Internal("service: failed to check ban list", err)
	}
	if banned {
		return fmt.Errorf("service: %w - user %s is banned from auction %s", auctionerrors.ErrForbidden, bidderID, a.AuctionID)
	}

	eligible, err := s.eligibility.CanBid(ctx, a, bidderID)
	if err != nil {
		return auctionerrors.Internal("service: failed to check bidder eligibility", err)
	}
	if !eligible {
		return fmt.Errorf("service: %w - user %s does not meet the bidder requirements of auction %s", auctionerrors.ErrForbidden, bidderID, a.AuctionID)
	}

	if minAmount := MinAcceptable(a); amount.LessThan(minAmount) {
		return fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{MinAmount: minAmount})
	}
	return nil
}

// MinAcceptable returns the smallest bid the auction accepts next. Without a
// step price a later bid must still beat the current winner by one cent.
func MinAcceptable(a models.Auction) decimal.Decimal {
	if a.HasWinner() && a.StepPrice.IsZero() {
		return a.CurrentPrice.Add(minimumUnit)
	}
	return a.MinNextBid()
}

// extendIfLate pushes the end time out when a bid lands inside the threshold window.
// Negative settings disable extension and the end time never moves backward.
func (s *BiddingService) extendIfLate(a *models.Auction, now time.Time) bool {
	if !a.AutoExtend || s.settings == nil {
		return false
	}
	threshold := s.settings.ThresholdMinutes()
	extension := s.settings.ExtensionMinutes()
	if threshold < 0 || extension < 0 {
		return false
	}
	if a.EndTime.Sub(now) > time.Duration(threshold)*time.Minute {
		return false
	}

	newEnd := now.Add(time.Duration(extension) * time.Minute)
	if !newEnd.After(a.EndTime) {
		return false
	}
	a.EndTime = newEnd
	return true
}

func (s *BiddingService) notifyBid(ctx context.Context, result models.BidResult) {
	now := s.clock.Now()
	notify.Send(ctx, s.notifier, notify.Event{
		Type:       notify.EventBidPlaced,
		AuctionID:  result.Auction.AuctionID,
		Recipients: []string{result.Auction.SellerID},
		Data: map[string]any{
			"bid_id":   result.Bid.BidID,
			"amount":   result.Bid.Amount.String(),
			"extended": result.Extended,
			"end_time": result.Auction.EndTime,
		},
		OccurredAt: now,
	})

	if result.PreviousWinner != "" && result.PreviousWinner != result.Bid.BidderID {
		notify.Send(ctx, s.notifier, notify.Event{
			Type:       notify.EventOutbid,
			AuctionID:  result.Auction.AuctionID,
			Recipients: []string{result.PreviousWinner},
			Data: map[string]any{
				"current_price": result.Auction.CurrentPrice.String(),
				"min_next_bid":  MinAcceptable(result.Auction).String(),
			},
			OccurredAt: now,
		})
	}
}

// GetAuction returns a snapshot of an auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get auction %s", auctionID), err)
	}
	return auction, nil
}

// GetBidsForAuction returns all accepted bids for an auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, auctionerrors.Internal(fmt.Sprintf("service: failed to get bids for auction %s", auctionID), err)
	}
	return bids, nil
}

// GetWinningBid returns the highest bid for an auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	winningBid, err := s.repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get winning bid for auction %s", auctionID), err)
	}
	return winningBid, nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByUser(ctx, userID)
	if err != nil {
		return nil, auctionerrors.Internal(fmt.Sprintf("service: failed to get auctions for user %s", userID), err)
	}
	return auctions, nil
}

// BanBidder lets the seller exclude a user from bidding on the auction
func (s *BiddingService) BanBidder(ctx context.Context, auctionID, requesterID, bidderID string) error {
	if auctionID == "" || requesterID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID, requesterID or bidderID", auctionerrors.ErrMissingField)
	}

	auction, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if requesterID != auction.SellerID {
		return fmt.Errorf("service: %w - only the seller may ban bidders", auctionerrors.ErrForbidden)
	}
	if bidderID == auction.SellerID {
		return fmt.Errorf("service: %w - seller cannot ban themselves", auctionerrors.ErrInvalidBid)
	}

	if err := s.repo.BanBidder(ctx, auctionID, bidderID); err != nil {
		return auctionerrors.Internal(fmt.Sprintf("service: failed to ban %s from auction %s", bidderID, auctionID), err)
	}
	return nil
}

// ExtendEndTime moves an open auction's end time later on the seller's request
func (s *BiddingService) ExtendEndTime(ctx context.Context, auctionID, requesterID string, newEnd time.Time) (models.Auction, error) {
	if auctionID == "" || requesterID == "" || newEnd.IsZero() {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID, requesterID or end time", auctionerrors.ErrMissingField)
	}

	var updated models.Auction
	err := s.repo.UpdateAuction(ctx, auctionID, func(a *models.Auction, _ repository.LockedAuction) error {
		if requesterID != a.SellerID {
			return fmt.Errorf("service: %w - only the seller may change the end time", auctionerrors.ErrForbidden)
		}
		if !a.IsOpenAt(s.clock.Now()) {
			return fmt.Errorf("service: %w - auction %s no longer accepts changes", auctionerrors.ErrAuctionClosed, a.AuctionID)
		}
		if !newEnd.After(a.EndTime) {
			return fmt.Errorf("service: %w - end time can only move forward", auctionerrors.ErrInvalidAuction)
		}
		a.EndTime = newEnd.UTC()
		updated = *a
		return nil
	})
	if err != nil {
		return models.Auction{}, auctionerrors.Internal(fmt.Sprintf("service: failed to extend auction %s", auctionID), err)
	}
	return updated, nil
}
