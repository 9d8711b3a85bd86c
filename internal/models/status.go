package models

import "fmt"

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionActive  AuctionStatus = "active"
	AuctionSold    AuctionStatus = "sold"
	AuctionExpired AuctionStatus = "expired"
)

var auctionTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionActive:  {AuctionSold, AuctionExpired},
	AuctionSold:    nil,
	AuctionExpired: nil,
}

// Valid reports whether s is a known auction status.
func (s AuctionStatus) Valid() bool {
	_, ok := auctionTransitions[s]
	return ok
}

// CanTransitionTo reports whether the auction may move from s to next.
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	for _, allowed := range auctionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether s admits no further transitions.
func (s AuctionStatus) IsFinal() bool {
	return s.Valid() && len(auctionTransitions[s]) == 0
}

// ParseAuctionStatus converts a stored string to an AuctionStatus.
func ParseAuctionStatus(raw string) (AuctionStatus, error) {
	s := AuctionStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown auction status %q", raw)
	}
	return s, nil
}

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Party identifies which side of an order may request a transition
type Party int

const (
	PartyNone Party = iota
	PartyWinner
	PartySeller
)

func (p Party) String() string {
	switch p {
	case PartyWinner:
		return "winner"
	case PartySeller:
		return "seller"
	default:
		return "none"
	}
}

// orderTransitions lists the forward moves of the fulfillment handshake.
// Cancellation is governed separately by the workflow's cancel policy.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderPaid},
	OrderPaid:      {OrderShipped},
	OrderShipped:   {OrderCompleted},
	OrderCompleted: nil,
	OrderCancelled: nil,
}

var orderActors = map[OrderStatus]Party{
	OrderPaid:      PartyWinner,
	OrderShipped:   PartySeller,
	OrderCompleted: PartyWinner,
	OrderCancelled: PartySeller,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether s is completed or cancelled.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanAdvanceTo reports whether next is the forward step after s.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiredActor returns the party allowed to move an order into s.
func (s OrderStatus) RequiredActor() Party {
	return orderActors[s]
}

// ParseOrderStatus converts a stored or requested string to an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}
