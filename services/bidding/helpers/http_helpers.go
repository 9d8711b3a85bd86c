package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auction-engine/internal/auctionerrors"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the caller's identity, set by the authentication layer in front of the API
	UserIDHeader = "X-User-ID"
	// UserIDKey is the gin context key the identity middleware stores the caller under
	UserIDKey = "user_id"
)

// CurrentUser returns the caller's user ID
func CurrentUser(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return id
	}
	return c.GetHeader(UserIDHeader)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is closed"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid order transition"
	case errors.Is(err, auctionerrors.ErrAuctionStillActive):
		return http.StatusConflict, "auction is still active"
	case errors.Is(err, auctionerrors.ErrNoWinner):
		return http.StatusConflict, "auction ended without a winner"
	case errors.Is(err, auctionerrors.ErrConflict):
		return http.StatusConflict, "conflicting request"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusForbidden, "seller cannot bid on own auction"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, "action not allowed for this user"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrInvalidFeedback):
		return http.StatusBadRequest, "invalid feedback"
	case errors.Is(err, auctionerrors.ErrInvalidMessage):
		return http.StatusBadRequest, "invalid message"
	case errors.Is(err, auctionerrors.ErrMissingField):
		return http.StatusBadRequest, "missing required field"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrUserNoBids):
		return http.StatusOK, "no auctions found for user"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error. A too-low bid also carries the minimum
// acceptable amount so the client can retry.
func RespondError(c *gin.Context, err error) {
	status, message := MapErrorToHTTP(err)
	wrapped := fmt.Errorf("%s: %w", message, err)
	if minAmount, ok := auctionerrors.MinAmount(err); ok {
		utils.JSONErrorWithDetails(c, status, wrapped, message, gin.H{"min_amount": minAmount.String()})
		return
	}
	utils.JSONError(c, status, wrapped, message)
}

// QueryUint parses an optional non-negative integer query parameter
func QueryUint(c *gin.Context, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be a non-negative integer", name)
	}
	return v, nil
}

// QueryInt parses an optional integer query parameter
func QueryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return v, nil
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
