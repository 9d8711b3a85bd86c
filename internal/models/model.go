package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction represents a time-boxed ascending-price sale of one item
type Auction struct {
	AuctionID       string           `json:"auction_id"`
	SellerID        string           `json:"seller_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	StartingPrice   decimal.Decimal  `json:"starting_price"`
	CurrentPrice    decimal.Decimal  `json:"current_price"`
	StepPrice       decimal.Decimal  `json:"step_price"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price,omitempty"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	Status          AuctionStatus    `json:"status"`
	CurrentWinner   string           `json:"current_winner,omitempty"`
	AutoExtend      bool             `json:"auto_extend"`
	RestrictBidders bool             `json:"restrict_bidders"`
	CreatedAt       time.Time        `json:"created_at"`
}

// MinNextBid returns the smallest amount the auction accepts from the next bidder.
func (a Auction) MinNextBid() decimal.Decimal {
	return a.CurrentPrice.Add(a.StepPrice)
}

// HasWinner reports whether a bid has been accepted on the auction.
func (a Auction) HasWinner() bool {
	return a.CurrentWinner != ""
}

// IsOpenAt reports whether the auction still accepts bids at now.
func (a Auction) IsOpenAt(now time.Time) bool {
	return a.Status == AuctionActive && now.Before(a.EndTime)
}

// IsDueAt reports whether the sweeper should finalize the auction at now.
func (a Auction) IsDueAt(now time.Time) bool {
	return a.Status == AuctionActive && !now.Before(a.EndTime)
}

// Bid represents an accepted bid. Bids are never mutated once stored.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Outranks reports whether b wins over other: higher amount, then earlier timestamp.
func (b Bid) Outranks(other Bid) bool {
	if cmp := b.Amount.Cmp(other.Amount); cmp != 0 {
		return cmp > 0
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// BidResult is the outcome of an accepted bid
type BidResult struct {
	Auction         Auction   `json:"auction"`
	Bid             Bid       `json:"bid"`
	Extended        bool      `json:"extended"`
	PreviousEndTime time.Time `json:"previous_end_time"`
	PreviousWinner  string    `json:"-"`
}

// Order is the post-auction fulfillment record between winner and seller
type Order struct {
	OrderID         string          `json:"order_id"`
	AuctionID       string          `json:"auction_id"`
	WinnerID        string          `json:"winner_id"`
	SellerID        string          `json:"seller_id"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	PaymentProof    string          `json:"payment_proof,omitempty"`
	ShipmentProof   string          `json:"shipment_proof,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsParty reports whether userID is the winner or the seller of the order.
func (o Order) IsParty(userID string) bool {
	return userID != "" && (userID == o.WinnerID || userID == o.SellerID)
}

// OrderPayload carries the data submitted with an order transition
type OrderPayload struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentProof    string `json:"payment_proof"`
	ShipmentProof   string `json:"shipment_proof"`
	Reason          string `json:"reason"`
}

// Rating of a feedback entry
type Rating int

const (
	RatingBad  Rating = -1
	RatingGood Rating = 1
)

// Valid reports whether r is one of the two accepted ratings.
func (r Rating) Valid() bool {
	return r == RatingGood || r == RatingBad
}

// Feedback is left by an auction's winner about its seller
type Feedback struct {
	FeedbackID string    `json:"feedback_id"`
	AuctionID  string    `json:"auction_id"`
	ReviewerID string    `json:"reviewer_id"`
	TargetID   string    `json:"target_id"`
	Rating     Rating    `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reputation aggregates the feedback a user has received
type Reputation struct {
	Good int `json:"good"`
	Bad  int `json:"bad"`
}

// Total returns the number of ratings.
func (r Reputation) Total() int {
	return r.Good + r.Bad
}

// Message is one entry of an order's chat log
type Message struct {
	MessageID uint64    `json:"message_id"`
	OrderID   string    `json:"order_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
