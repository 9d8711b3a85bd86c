package orders

import (
	"context"
	"fmt"
	"strings"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/clock"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/internal/sweeper"
	"auction-engine/utils"
)

// Finalizer closes a due auction on demand
type Finalizer interface {
	FinalizeAuction(ctx context.Context, auctionID string) (sweeper.Outcome, error)
}

// OrderService drives the post-sale handshake between winner and seller,
// together with the order chat and seller feedback.
type OrderService struct {
	auctions  repository.AuctionDB
	orders    repository.OrderDB
	feedback  repository.FeedbackDB
	finalizer Finalizer

	clock          clock.Clock
	notifier       notify.Notifier
	cancelPolicy   CancelPolicy
	feedbackPolicy FeedbackPolicy
}

// Option configures an OrderService
type Option func(*OrderService)

func WithClock(c clock.Clock) Option {
	return func(s *OrderService) { s.clock = c }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *OrderService) { s.notifier = n }
}

func WithCancelPolicy(p CancelPolicy) Option {
	return func(s *OrderService) { s.cancelPolicy = p }
}

func WithFeedbackPolicy(p FeedbackPolicy) Option {
	return func(s *OrderService) { s.feedbackPolicy = p }
}

// NewOrderService creates a new OrderService instance
func NewOrderService(auctions repository.AuctionDB, orders repository.OrderDB, feedback repository.FeedbackDB, finalizer Finalizer, opts ...Option) *OrderService {
	s := &OrderService{
		auctions:       auctions,
		orders:         orders,
		feedback:       feedback,
		finalizer:      finalizer,
		clock:          clock.Real(),
		notifier:       notify.LogNotifier{},
		cancelPolicy:   DefaultCancelPolicy(),
		feedbackPolicy: FeedbackAfterSale,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateOrder returns the order of a finished auction, creating it on first access
func (s *OrderService) GetOrCreateOrder(ctx context.Context, auctionID, requesterID string) (model.Order, error) {
	if auctionID == "" || requesterID == "" {
		return model.Order{}, fmt.Errorf("service: %w - missing auctionID or requesterID", auctionerrors.ErrMissingField)
	}

	auction, err := s.soldAuction(ctx, auctionID)
	if err != nil {
		return model.Order{}, err
	}
	if requesterID != auction.SellerID && requesterID != auction.CurrentWinner {
		return model.Order{}, fmt.Errorf("service: %w - user %s is not a party to auction %s", auctionerrors.ErrForbidden, requesterID, auctionID)
	}

	now := s.clock.Now()
	candidate := model.Order{
		OrderID:    utils.GenerateID(),
		AuctionID:  auction.AuctionID,
		WinnerID:   auction.CurrentWinner,
		SellerID:   auction.SellerID,
		FinalPrice: auction.CurrentPrice,
		Status:     model.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	order, created, err := s.orders.CreateOrderIfAbsent(ctx, candidate)
	if err != nil {
		return model.Order{}, auctionerrors.Internal(fmt.Sprintf("service: failed to create order for auction %s", auctionID), err)
	}

	if created {
		utils.Info("order created", map[string]any{
			"order_id":    order.OrderID,
			"auction_id":  order.AuctionID,
			"winner_id":   order.WinnerID,
			"final_price": order.FinalPrice.String(),
		})
		s.notifyOrder(ctx, order, order.SellerID)
	}
	return order, nil
}

// soldAuction loads an auction and makes sure it ended with a winner. An auction
// still marked active but past its end is finalized first, under the auction lock.
func (s *OrderService) soldAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get auction %s", auctionID), err)
	}

	if auction.Status == model.AuctionActive {
		if auction.IsOpenAt(s.clock.Now()) {
			return model.Auction{}, fmt.Errorf("service: %w - auction %s ends at %s", auctionerrors.ErrAuctionStillActive, auctionID, auction.EndTime)
		}
		out, err := s.finalizer.FinalizeAuction(ctx, auctionID)
		if err != nil {
			return model.Auction{}, err
		}
		auction = out.Auction
		if auction.Status == model.AuctionActive {
			return model.Auction{}, fmt.Errorf("service: %w - auction %s was extended", auctionerrors.ErrAuctionStillActive, auctionID)
		}
	}

	if auction.Status != model.AuctionSold || !auction.HasWinner() {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s %s", auctionerrors.ErrNoWinner, auctionID, auction.Status)
	}
	return auction, nil
}

// GetOrder returns an order to one of its parties
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID string) (model.Order, error) {
	if orderID == "" || requesterID == "" {
		return model.Order{}, fmt.Errorf("service: %w - missing orderID or requesterID", auctionerrors.ErrMissingField)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get order %s", orderID), err)
	}
	if !order.IsParty(requesterID) {
		return model.Order{}, fmt.Errorf("service: %w - user %s is not a party to order %s", auctionerrors.ErrForbidden, requesterID, orderID)
	}
	return order, nil
}

// AdvanceOrder moves an order to target on behalf of requesterID. The actor is
// checked before the state so a client can tell "not yours" from "not now".
func (s *OrderService) AdvanceOrder(ctx context.Context, orderID, requesterID string, target model.OrderStatus, payload model.OrderPayload) (model.Order, error) {
	if orderID == "" || requesterID == "" {
		return model.Order{}, fmt.Errorf("service: %w - missing orderID or requesterID", auctionerrors.ErrMissingField)
	}
	if !target.Valid() {
		return model.Order{}, fmt.Errorf("service: %w - unknown target status %q", auctionerrors.ErrInvalidTransition, target)
	}

	var from model.OrderStatus
	updated, err := s.orders.UpdateOrder(ctx, orderID, func(o *model.Order) error {
		if err := s.checkAdvance(*o, requesterID, target, payload); err != nil {
			return err
		}
		from = o.Status
		applyPayload(o, target, payload)
		o.Status = target
		o.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return model.Order{}, auctionerrors.Internal(fmt.Sprintf("service: failed to advance order %s to %s", orderID, target), err)
	}

	utils.Info("order advanced", map[string]any{
		"order_id": updated.OrderID,
		"from":     string(from),
		"to":       string(updated.Status),
		"actor":    requesterID,
	})

	counterparty := updated.SellerID
	if requesterID == updated.SellerID {
		counterparty = updated.WinnerID
	}
	s.notifyOrder(ctx, updated, counterparty)
	return updated, nil
}

func (s *OrderService) checkAdvance(o model.Order, requesterID string, target model.OrderStatus, payload model.OrderPayload) error {
	party := partyOf(o, requesterID)
	if party == model.PartyNone {
		return fmt.Errorf("service: %w - user %s is not a party to order %s", auctionerrors.ErrForbidden, requesterID, o.OrderID)
	}
	if required := target.RequiredActor(); required != model.PartyNone && required != party {
		return fmt.Errorf("service: %w - only the %s may move an order to %s", auctionerrors.ErrForbidden, required, target)
	}

	allowed := o.Status.CanAdvanceTo(target)
	if target == model.OrderCancelled {
		allowed = s.cancelPolicy.Allows(o.Status)
	}
	if !allowed {
		return fmt.Errorf("service: %w - %s -> %s", auctionerrors.ErrInvalidTransition, o.Status, target)
	}

	if target == model.OrderPaid && strings.TrimSpace(payload.ShippingAddress) == "" {
		return fmt.Errorf("service: %w - shipping address is required", auctionerrors.ErrMissingField)
	}
	return nil
}

func applyPayload(o *model.Order, target model.OrderStatus, payload model.OrderPayload) {
	switch target {
	case model.OrderPaid:
		o.ShippingAddress = strings.TrimSpace(payload.ShippingAddress)
		o.PaymentProof = payload.PaymentProof
	case model.OrderShipped:
		o.ShipmentProof = payload.ShipmentProof
	case model.OrderCancelled:
		o.CancelReason = payload.Reason
	}
}

func partyOf(o model.Order, userID string) model.Party {
	switch {
	case userID == "":
		return model.PartyNone
	case userID == o.WinnerID:
		return model.PartyWinner
	case userID == o.SellerID:
		return model.PartySeller
	default:
		return model.PartyNone
	}
}

func (s *OrderService) notifyOrder(ctx context.Context, order model.Order, recipient string) {
	notify.Send(ctx, s.notifier, notify.Event{
		Type:       notify.EventOrderUpdated,
		AuctionID:  order.AuctionID,
		OrderID:    order.OrderID,
		Recipients: []string{recipient},
		Data:       map[string]any{"status": string(order.Status)},
		OccurredAt: s.clock.Now(),
	})
}
