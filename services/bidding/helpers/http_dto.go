package helpers

import (
	"time"

	model "auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs

type CreateAuctionRequest struct {
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	StartingPrice   decimal.Decimal  `json:"starting_price"`
	StepPrice       decimal.Decimal  `json:"step_price"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	AutoExtend      bool             `json:"auto_extend"`
	RestrictBidders bool             `json:"restrict_bidders"`
}

type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type BanBidderRequest struct {
	BidderID string `json:"bidder_id" binding:"required"`
}

type ExtendEndTimeRequest struct {
	EndTime time.Time `json:"end_time"`
}

type AdvanceOrderRequest struct {
	Status          string `json:"status" binding:"required"`
	ShippingAddress string `json:"shipping_address"`
	PaymentProof    string `json:"payment_proof"`
	ShipmentProof   string `json:"shipment_proof"`
	Reason          string `json:"reason"`
}

// Payload extracts the transition data
func (r AdvanceOrderRequest) Payload() model.OrderPayload {
	return model.OrderPayload{
		ShippingAddress: r.ShippingAddress,
		PaymentProof:    r.PaymentProof,
		ShipmentProof:   r.ShipmentProof,
		Reason:          r.Reason,
	}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,oneof=-1 1"`
	Comment string `json:"comment"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

// NewBidResponse converts a stored bid to its wire form
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type PlaceBidResponse struct {
	Bid             BidResponse     `json:"bid"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentWinner   string          `json:"current_winner"`
	MinNextBid      decimal.Decimal `json:"min_next_bid"`
	EndTime         string          `json:"end_time"`
	Extended        bool            `json:"extended"`
	PreviousEndTime string          `json:"previous_end_time,omitempty"`
}

type AuctionResponse struct {
	model.Auction
	MinNextBid decimal.Decimal `json:"min_next_bid"`
}

type SweepResponse struct {
	Finalized int `json:"finalized"`
}
