package handler

import (
	"context"
	"net/http"

	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

type OrderServiceInterface interface {
	GetOrCreateOrder(ctx context.Context, auctionID, requesterID string) (model.Order, error)
	AdvanceOrder(ctx context.Context, orderID, requesterID string, target model.OrderStatus, payload model.OrderPayload) (model.Order, error)
	SendMessage(ctx context.Context, orderID, senderID, content string) (model.Message, error)
	ListMessages(ctx context.Context, orderID, requesterID string, afterID uint64, limit int) ([]model.Message, error)
	SubmitFeedback(ctx context.Context, auctionID, reviewerID string, rating model.Rating, comment string) (model.Feedback, error)
	ListFeedback(ctx context.Context, auctionID string) ([]model.Feedback, error)
	GetReputation(ctx context.Context, userID string) (model.Reputation, error)
}

type OrderHandler struct {
	service OrderServiceInterface
}

func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

// GetOrderHandler handles GET /auctions/:auction_id/order
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	requesterID := helpers.CurrentUser(c)

	order, err := h.service.GetOrCreateOrder(c.Request.Context(), auctionID, requesterID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetOrderHandler: failed to load order", map[string]any{
			"auction_id":   auctionID,
			"requester_id": requesterID,
			"error":        err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, order, "order retrieved successfully")
}

// AdvanceOrderHandler handles POST /orders/:order_id/advance
func (h *OrderHandler) AdvanceOrderHandler(c *gin.Context) {
	var req helpers.AdvanceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AdvanceOrderHandler", err)
		return
	}

	orderID := c.Param("order_id")
	requesterID := helpers.CurrentUser(c)
	order, err := h.service.AdvanceOrder(c.Request.Context(), orderID, requesterID, model.OrderStatus(req.Status), req.Payload())
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("AdvanceOrderHandler: order step rejected", map[string]any{
			"order_id":     orderID,
			"requester_id": requesterID,
			"target":       req.Status,
			"error":        err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, order, "order updated successfully")
	helpers.LogSuccess("AdvanceOrderHandler", "order updated successfully", map[string]any{
		"order_id": orderID,
		"status":   string(order.Status),
	})
}

// SendMessageHandler handles POST /orders/:order_id/messages
func (h *OrderHandler) SendMessageHandler(c *gin.Context) {
	var req helpers.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SendMessageHandler", err)
		return
	}

	orderID := c.Param("order_id")
	msg, err := h.service.SendMessage(c.Request.Context(), orderID, helpers.CurrentUser(c), req.Content)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("SendMessageHandler: failed to send message", map[string]any{"order_id": orderID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, msg, "message sent successfully")
}

// ListMessagesHandler handles GET /orders/:order_id/messages?after_id=&limit=
func (h *OrderHandler) ListMessagesHandler(c *gin.Context) {
	afterID, err := helpers.QueryUint(c, "after_id")
	if err != nil {
		helpers.HandleBindError(c, "ListMessagesHandler", err)
		return
	}
	limit, err := helpers.QueryInt(c, "limit")
	if err != nil {
		helpers.HandleBindError(c, "ListMessagesHandler", err)
		return
	}

	orderID := c.Param("order_id")
	msgs, err := h.service.ListMessages(c.Request.Context(), orderID, helpers.CurrentUser(c), afterID, limit)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("ListMessagesHandler: failed to list messages", map[string]any{"order_id": orderID, "error": err.Error()})
		return
	}

	if msgs == nil {
		msgs = []model.Message{}
	}
	utils.JSONResponse(c, http.StatusOK, msgs, "messages retrieved successfully")
}

// SubmitFeedbackHandler handles POST /auctions/:auction_id/feedback
func (h *OrderHandler) SubmitFeedbackHandler(c *gin.Context) {
	var req helpers.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitFeedbackHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	reviewerID := helpers.CurrentUser(c)
	fb, err := h.service.SubmitFeedback(c.Request.Context(), auctionID, reviewerID, model.Rating(req.Rating), req.Comment)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("SubmitFeedbackHandler: feedback rejected", map[string]any{
			"auction_id":  auctionID,
			"reviewer_id": reviewerID,
			"error":       err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, fb, "feedback submitted successfully")
	helpers.LogSuccess("SubmitFeedbackHandler", "feedback submitted successfully", map[string]any{
		"auction_id": auctionID,
		"rating":     req.Rating,
	})
}

// ListFeedbackHandler handles GET /auctions/:auction_id/feedback
func (h *OrderHandler) ListFeedbackHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	items, err := h.service.ListFeedback(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("ListFeedbackHandler: failed to list feedback", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if items == nil {
		items = []model.Feedback{}
	}
	utils.JSONResponse(c, http.StatusOK, items, "feedback retrieved successfully")
}

// GetReputationHandler handles GET /users/:user_id/reputation
func (h *OrderHandler) GetReputationHandler(c *gin.Context) {
	userID := c.Param("user_id")
	rep, err := h.service.GetReputation(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetReputationHandler: failed to load reputation", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"user_id": userID, "good": rep.Good, "bad": rep.Bad, "total": rep.Total()}, "reputation retrieved successfully")
}
