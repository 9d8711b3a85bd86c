package repository

//go:generate mockgen -destination=mock_repository.go -package=repository -self_package=auction-engine/internal/repository auction-engine/internal/repository AuctionDB,OrderDB

import (
	"context"
	"errors"
	"time"

	model "auction-engine/internal/models"
)

// LockedAuction gives an UpdateAuction callback access to the bid log of the
// auction it holds. Appended bids become visible only if the callback succeeds.
type LockedAuction interface {
	HighestBid() (model.Bid, bool, error)
	AppendBid(bid model.Bid) error
}

// AuctionFunc mutates a locked auction in place.
type AuctionFunc func(auction *model.Auction, locked LockedAuction) error

// ErrUnchanged is returned by an AuctionFunc that left the auction as it found it.
// UpdateAuction then releases the lock without writing and reports success.
var ErrUnchanged = errors.New("auction unchanged")

// AuctionDB defines the auction ledger storage interface
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)
	// ListDueAuctions returns the IDs of active auctions whose end time is at or before now.
	ListDueAuctions(ctx context.Context, now time.Time) ([]string, error)
	// UpdateAuction runs fn while holding the auction's exclusive lock and
	// persists the auction and appended bids only when fn returns nil.
	// ErrUnchanged from fn skips the write and is not returned.
	UpdateAuction(ctx context.Context, auctionID string, fn AuctionFunc) error
	IsBanned(ctx context.Context, auctionID, userID string) (bool, error)
	BanBidder(ctx context.Context, auctionID, userID string) error
}

// OrderFunc mutates a locked order in place.
type OrderFunc func(order *model.Order) error

// OrderDB defines the order and order-chat storage interface
type OrderDB interface {
	// CreateOrderIfAbsent stores order unless one already exists for its auction,
	// and returns the stored order either way.
	CreateOrderIfAbsent(ctx context.Context, order model.Order) (model.Order, bool, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	GetOrderByAuction(ctx context.Context, auctionID string) (model.Order, error)
	UpdateOrder(ctx context.Context, orderID string, fn OrderFunc) (model.Order, error)
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)
	ListMessages(ctx context.Context, orderID string, afterID uint64, limit int) ([]model.Message, error)
}

// FeedbackDB defines the feedback storage interface
type FeedbackDB interface {
	CreateFeedback(ctx context.Context, fb model.Feedback) error
	ListFeedbackByAuction(ctx context.Context, auctionID string) ([]model.Feedback, error)
	GetReputation(ctx context.Context, userID string) (model.Reputation, error)
}

// Ledger is a store backing every service
type Ledger interface {
	AuctionDB
	OrderDB
	FeedbackDB
}

const (
	DefaultMessageLimit = 30
	MaxMessageLimit     = 100
)

// ClampMessageLimit normalizes a chat page size.
func ClampMessageLimit(limit int) int {
	if limit <= 0 || limit > MaxMessageLimit {
		return DefaultMessageLimit
	}
	return limit
}
