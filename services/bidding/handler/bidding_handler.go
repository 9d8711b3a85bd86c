package handler

//go:generate mockgen -destination=mock_services.go -package=handler auction-engine/services/bidding/handler BiddingServiceInterface,OrderServiceInterface,SweeperInterface

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	bidding "auction-engine/internal/biddingService"
	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, in bidding.CreateAuctionInput) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.BidResult, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)
	BanBidder(ctx context.Context, auctionID, requesterID, bidderID string) error
	ExtendEndTime(ctx context.Context, auctionID, requesterID string, newEnd time.Time) (model.Auction, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	sellerID := helpers.CurrentUser(c)
	auction, err := h.service.CreateAuction(c.Request.Context(), bidding.CreateAuctionInput{
		SellerID:        sellerID,
		Title:           req.Title,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		StepPrice:       req.StepPrice,
		BuyNowPrice:     req.BuyNowPrice,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AutoExtend:      req.AutoExtend,
		RestrictBidders: req.RestrictBidders,
	})
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("CreateAuctionHandler: failed to create auction", map[string]any{
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  sellerID,
		"end_time":   auction.EndTime.Format(time.RFC3339),
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auctionResponse(auction), "auction retrieved successfully")
}

func auctionResponse(a model.Auction) helpers.AuctionResponse {
	return helpers.AuctionResponse{Auction: a, MinNextBid: bidding.MinAcceptable(a)}
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bidderID := helpers.CurrentUser(c)
	result, err := h.service.PlaceBid(c.Request.Context(), req.AuctionID, bidderID, req.Amount)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Error("RecordBidHandler: failed to record bid", map[string]any{
			"handler":    "RecordBidHandler",
			"auction_id": req.AuctionID,
			"bidder_id":  bidderID,
			"amount":     req.Amount.String(),
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.PlaceBidResponse{
		Bid:           helpers.NewBidResponse(result.Bid),
		CurrentPrice:  result.Auction.CurrentPrice,
		CurrentWinner: result.Auction.CurrentWinner,
		MinNextBid:    bidding.MinAcceptable(result.Auction),
		EndTime:       result.Auction.EndTime.UTC().Format(time.RFC3339),
		Extended:      result.Extended,
	}
	if result.Extended {
		resp.PreviousEndTime = result.PreviousEndTime.UTC().Format(time.RFC3339)
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": result.Bid.AuctionID,
		"bidder_id":  bidderID,
		"amount":     result.Bid.Amount.String(),
		"extended":   result.Extended,
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		helpers.RespondError(c, err)
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.NewBidResponse(bid))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), auctionID)
	if err != nil {
		// For auction, winning bid not found -> 404
		if errors.Is(err, auctionerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		helpers.RespondError(c, err)
		utils.Warn("GetWinningBidHandler: winning bid error", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.GetAuctionsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, auctionerrors.ErrUserNoBids) {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionsByUserHandler: error retrieving auctions", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(auctions),
	})
}

// BanBidderHandler handles POST /auctions/:auction_id/bans
func (h *BiddingHandler) BanBidderHandler(c *gin.Context) {
	var req helpers.BanBidderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "BanBidderHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	requesterID := helpers.CurrentUser(c)
	if err := h.service.BanBidder(c.Request.Context(), auctionID, requesterID, req.BidderID); err != nil {
		helpers.RespondError(c, err)
		utils.Warn("BanBidderHandler: failed to ban bidder", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "bidder_id": req.BidderID}, "bidder banned successfully")
	helpers.LogSuccess("BanBidderHandler", "bidder banned successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
	})
}

// ExtendEndTimeHandler handles PUT /auctions/:auction_id/end-time
func (h *BiddingHandler) ExtendEndTimeHandler(c *gin.Context) {
	var req helpers.ExtendEndTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ExtendEndTimeHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	auction, err := h.service.ExtendEndTime(c.Request.Context(), auctionID, helpers.CurrentUser(c), req.EndTime)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("ExtendEndTimeHandler: failed to change end time", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auctionResponse(auction), "end time updated successfully")
	helpers.LogSuccess("ExtendEndTimeHandler", "end time updated successfully", map[string]any{
		"auction_id": auctionID,
		"end_time":   auction.EndTime.Format(time.RFC3339),
	})
}
