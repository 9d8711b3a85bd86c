package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Lookup errors
var (
	ErrNotFound   = errors.New("not found")
	ErrNoBids     = errors.New("no bids found for auction")
	ErrUserNoBids = errors.New("user has not placed any bids")
)

// Input validation errors
var (
	ErrInvalidBid      = errors.New("invalid bid")
	ErrInvalidAuction  = errors.New("invalid auction")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrMissingField    = errors.New("missing required field")
)

// Business rule errors
var (
	ErrAuctionClosed      = errors.New("auction closed")
	ErrSelfBid            = errors.New("seller cannot bid on own auction")
	ErrForbidden          = errors.New("forbidden")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAuctionStillActive = errors.New("auction still active")
	ErrNoWinner           = errors.New("auction has no winner")
)

// Internal errors. ErrConflict signals a concurrent modification or a uniqueness violation.
var (
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

// BidTooLowError carries the smallest amount the auction would currently accept.
type BidTooLowError struct {
	MinAmount decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s - minimum acceptable amount is %s", ErrBidTooLow, e.MinAmount.String())
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// MinAmount extracts the minimum acceptable amount from a BidTooLow error chain.
func MinAmount(err error) (decimal.Decimal, bool) {
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		return tooLow.MinAmount, true
	}
	return decimal.Zero, false
}

var domainErrors = []error{
	ErrNotFound, ErrNoBids, ErrUserNoBids,
	ErrInvalidBid, ErrInvalidAuction, ErrInvalidFeedback, ErrInvalidMessage, ErrMissingField,
	ErrAuctionClosed, ErrSelfBid, ErrForbidden, ErrBidTooLow, ErrInvalidTransition,
	ErrAuctionStillActive, ErrNoWinner, ErrConflict, ErrInternal,
}

// IsDomain reports whether err belongs to the taxonomy above.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Internal wraps a storage failure. Errors that already belong to the taxonomy
// keep their kind and only gain the operation prefix.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}
