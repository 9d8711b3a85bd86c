package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/keylock"
	model "auction-engine/internal/models"
)

var _ Ledger = (*MemoryRepo)(nil)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB, OrderDB and FeedbackDB.
// mu guards the maps and is only held for short copies; read-validate-write sequences on one
// auction or order are serialized by the keyed locks so unrelated auctions never contend.
type MemoryRepo struct {
	mu             sync.RWMutex
	auctions       map[string]model.Auction       // key: auctionID -> value: auction
	bids           map[string][]model.Bid         // key: auctionID -> value: accepted bids in commit order
	userAuctions   map[string][]string            // key: userID -> value: auctionIDs the user has bid on
	bans           map[string]map[string]struct{} // key: auctionID -> value: banned userIDs
	orders         map[string]model.Order         // key: orderID -> value: order
	auctionOrders  map[string]string              // key: auctionID -> value: orderID
	messages       map[string][]model.Message     // key: orderID -> value: chat log
	nextMessageID  uint64
	feedback       map[string][]model.Feedback // key: auctionID -> value: feedback entries
	feedbackByPair map[string]struct{}         // key: auctionID|reviewerID
	reputations    map[string]model.Reputation // key: target userID

	auctionLocks *keylock.KeyedMutex
	orderLocks   *keylock.KeyedMutex
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:       make(map[string]model.Auction),
		bids:           make(map[string][]model.Bid),
		userAuctions:   make(map[string][]string),
		bans:           make(map[string]map[string]struct{}),
		orders:         make(map[string]model.Order),
		auctionOrders:  make(map[string]string),
		messages:       make(map[string][]model.Message),
		feedback:       make(map[string][]model.Feedback),
		feedbackByPair: make(map[string]struct{}),
		reputations:    make(map[string]model.Reputation),
		auctionLocks:   keylock.New(),
		orderLocks:     keylock.New(),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: %w - already exists", auction.AuctionID, auctionerrors.ErrConflict)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns a snapshot of an auction
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	return auction, nil
}

// GetBidsByAuction returns all accepted bids for an auction in commit order
func (r *MemoryRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	bids := r.bids[auctionID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// GetWinningBid returns the highest bid for an auction, earliest first on ties
func (r *MemoryRepo) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	winning, ok := highestBid(r.bids[auctionID])
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return winning, nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs := r.userAuctions[userID]
	if len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if auction, exists := r.auctions[id]; exists {
			auctions = append(auctions, auction)
		}
	}
	return auctions, nil
}

// ListDueAuctions returns active auctions whose end time has passed, earliest end first
func (r *MemoryRepo) ListDueAuctions(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.RLock()
	due := make([]model.Auction, 0)
	for _, auction := range r.auctions {
		if auction.IsDueAt(now) {
			due = append(due, auction)
		}
	}
	r.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].EndTime.Equal(due[j].EndTime) {
			return due[i].AuctionID < due[j].AuctionID
		}
		return due[i].EndTime.Before(due[j].EndTime)
	})

	ids := make([]string, len(due))
	for i, auction := range due {
		ids[i] = auction.AuctionID
	}
	return ids, nil
}

// UpdateAuction serializes fn against every other update of the same auction
func (r *MemoryRepo) UpdateAuction(ctx context.Context, auctionID string, fn AuctionFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := r.auctionLocks.Lock(auctionID)
	defer unlock()

	r.mu.RLock()
	auction, ok := r.auctions[auctionID]
	// Only holders of this auction's lock append to its bid slice, so this prefix is stable.
	committed := r.bids[auctionID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}

	locked := &memoryLockedAuction{auctionID: auctionID, committed: committed}
	working := auction
	if err := fn(&working, locked); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}
	working.AuctionID = auctionID

	r.mu.Lock()
	defer r.mu.Unlock()

	r.auctions[auctionID] = working
	for _, bid := range locked.staged {
		r.bids[auctionID] = append(r.bids[auctionID], bid)
		r.indexUserAuction(bid.BidderID, auctionID)
	}
	return nil
}

// indexUserAuction records that userID has bid on auctionID. Caller holds mu.
func (r *MemoryRepo) indexUserAuction(userID, auctionID string) {
	for _, id := range r.userAuctions[userID] {
		if id == auctionID {
			return
		}
	}
	r.userAuctions[userID] = append(r.userAuctions[userID], auctionID)
}

// IsBanned reports whether userID has been banned from bidding on auctionID
func (r *MemoryRepo) IsBanned(ctx context.Context, auctionID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, banned := r.bans[auctionID][userID]
	return banned, nil
}

// BanBidder prevents userID from bidding on auctionID
func (r *MemoryRepo) BanBidder(ctx context.Context, auctionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("ban bidder on auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	if r.bans[auctionID] == nil {
		r.bans[auctionID] = make(map[string]struct{})
	}
	r.bans[auctionID][userID] = struct{}{}
	return nil
}

type memoryLockedAuction struct {
	auctionID string
	committed []model.Bid
	staged    []model.Bid
}

func (l *memoryLockedAuction) HighestBid() (model.Bid, bool, error) {
	best, ok := highestBid(l.committed)
	if staged, stagedOK := highestBid(l.staged); stagedOK && (!ok || staged.Outranks(best)) {
		return staged, true, nil
	}
	return best, ok, nil
}

func (l *memoryLockedAuction) AppendBid(bid model.Bid) error {
	if bid.AuctionID != l.auctionID {
		return fmt.Errorf("append bid %s: %w - bid belongs to auction %s", bid.BidID, auctionerrors.ErrInvalidBid, bid.AuctionID)
	}
	l.staged = append(l.staged, bid)
	return nil
}

func highestBid(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Outranks(winning) {
			winning = b
		}
	}
	return winning, true
}

// CreateOrderIfAbsent stores order unless its auction already has one
func (r *MemoryRepo) CreateOrderIfAbsent(ctx context.Context, order model.Order) (model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.auctionOrders[order.AuctionID]; ok {
		return r.orders[existingID], false, nil
	}
	if _, ok := r.orders[order.OrderID]; ok {
		return model.Order{}, false, fmt.Errorf("create order %s: %w - duplicate order ID", order.OrderID, auctionerrors.ErrConflict)
	}
	r.orders[order.OrderID] = order
	r.auctionOrders[order.AuctionID] = order.OrderID
	return order, true, nil
}

// GetOrder returns an order by ID
func (r *MemoryRepo) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, auctionerrors.ErrNotFound)
	}
	return order, nil
}

// GetOrderByAuction returns the order created for an auction
func (r *MemoryRepo) GetOrderByAuction(ctx context.Context, auctionID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.auctionOrders[auctionID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order for auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	return r.orders[orderID], nil
}

// UpdateOrder serializes fn against every other update of the same order
func (r *MemoryRepo) UpdateOrder(ctx context.Context, orderID string, fn OrderFunc) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, err
	}

	unlock := r.orderLocks.Lock(orderID)
	defer unlock()

	order, err := r.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order: %w", err)
	}

	working := order
	if err := fn(&working); err != nil {
		return model.Order{}, err
	}
	working.OrderID = order.OrderID
	working.AuctionID = order.AuctionID
	working.WinnerID = order.WinnerID
	working.SellerID = order.SellerID

	r.mu.Lock()
	r.orders[orderID] = working
	r.mu.Unlock()
	return working, nil
}

// AppendMessage adds a message to an order's chat log and assigns its ID
func (r *MemoryRepo) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[msg.OrderID]; !ok {
		return model.Message{}, fmt.Errorf("append message to order %s: %w", msg.OrderID, auctionerrors.ErrNotFound)
	}
	r.nextMessageID++
	msg.MessageID = r.nextMessageID
	r.messages[msg.OrderID] = append(r.messages[msg.OrderID], msg)
	return msg, nil
}

// ListMessages returns up to limit messages with IDs greater than afterID, oldest first
func (r *MemoryRepo) ListMessages(ctx context.Context, orderID string, afterID uint64, limit int) ([]model.Message, error) {
	limit = ClampMessageLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, fmt.Errorf("list messages for order %s: %w", orderID, auctionerrors.ErrNotFound)
	}

	out := make([]model.Message, 0)
	for _, msg := range r.messages[orderID] {
		if msg.MessageID <= afterID {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CreateFeedback stores feedback, at most one per auction and reviewer
func (r *MemoryRepo) CreateFeedback(ctx context.Context, fb model.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fb.AuctionID + "|" + fb.ReviewerID
	if _, exists := r.feedbackByPair[key]; exists {
		return fmt.Errorf("create feedback for auction %s by %s: %w - already submitted", fb.AuctionID, fb.ReviewerID, auctionerrors.ErrConflict)
	}
	r.feedbackByPair[key] = struct{}{}
	r.feedback[fb.AuctionID] = append(r.feedback[fb.AuctionID], fb)

	rep := r.reputations[fb.TargetID]
	if fb.Rating == model.RatingGood {
		rep.Good++
	} else {
		rep.Bad++
	}
	r.reputations[fb.TargetID] = rep
	return nil
}

// ListFeedbackByAuction returns the feedback left on an auction
func (r *MemoryRepo) ListFeedbackByAuction(ctx context.Context, auctionID string) ([]model.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Feedback{}, r.feedback[auctionID]...), nil
}

// GetReputation returns the good and bad ratings a user has received
func (r *MemoryRepo) GetReputation(ctx context.Context, userID string) (model.Reputation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.reputations[userID], nil
}
