package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"
)

// SubmitFeedback records the winner's rating of the seller. One entry per auction and reviewer.
func (s *OrderService) SubmitFeedback(ctx context.Context, auctionID, reviewerID string, rating model.Rating, comment string) (model.Feedback, error) {
	if auctionID == "" || reviewerID == "" {
		return model.Feedback{}, fmt.Errorf("service: %w - missing auctionID or reviewerID", auctionerrors.ErrMissingField)
	}
	if !rating.Valid() {
		return model.Feedback{}, fmt.Errorf("service: %w - rating must be 1 or -1, got %d", auctionerrors.ErrInvalidFeedback, rating)
	}

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Feedback{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get auction %s", auctionID), err)
	}
	switch auction.Status {
	case model.AuctionActive:
		return model.Feedback{}, fmt.Errorf("service: %w - feedback opens after the auction ends", auctionerrors.ErrAuctionStillActive)
	case model.AuctionExpired:
		return model.Feedback{}, fmt.Errorf("service: %w - auction %s expired unsold", auctionerrors.ErrNoWinner, auctionID)
	}
	if reviewerID != auction.CurrentWinner {
		return model.Feedback{}, fmt.Errorf("service: %w - only the winner may rate the seller", auctionerrors.ErrForbidden)
	}

	if s.feedbackPolicy == FeedbackAfterCompletion {
		if err := s.requireCompletedOrder(ctx, auctionID); err != nil {
			return model.Feedback{}, err
		}
	}

	fb := model.Feedback{
		FeedbackID: utils.GenerateID(),
		AuctionID:  auctionID,
		ReviewerID: reviewerID,
		TargetID:   auction.SellerID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.feedback.CreateFeedback(ctx, fb); err != nil {
		return model.Feedback{}, auctionerrors.Internal(fmt.Sprintf("service: failed to store feedback for auction %s", auctionID), err)
	}

	utils.Info("feedback submitted", map[string]any{
		"auction_id": auctionID,
		"target_id":  fb.TargetID,
		"rating":     int(fb.Rating),
	})
	return fb, nil
}

func (s *OrderService) requireCompletedOrder(ctx context.Context, auctionID string) error {
	order, err := s.orders.GetOrderByAuction(ctx, auctionID)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return fmt.Errorf("service: %w - no order for auction %s yet", auctionerrors.ErrInvalidFeedback, auctionID)
	}
	if err != nil {
		return auctionerrors.Internal(fmt.Sprintf("service: failed to get order for auction %s", auctionID), err)
	}
	if order.Status != model.OrderCompleted {
		return fmt.Errorf("service: %w - order %s is %s, feedback opens once completed", auctionerrors.ErrInvalidFeedback, order.OrderID, order.Status)
	}
	return nil
}

// ListFeedback returns the feedback left on an auction
func (s *OrderService) ListFeedback(ctx context.Context, auctionID string) ([]model.Feedback, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrMissingField)
	}

	items, err := s.feedback.ListFeedbackByAuction(ctx, auctionID)
	if err != nil {
		return nil, auctionerrors.Internal(fmt.Sprintf("service: failed to list feedback for auction %s", auctionID), err)
	}
	return items, nil
}

// GetReputation returns the good and bad ratings a user has received
func (s *OrderService) GetReputation(ctx context.Context, userID string) (model.Reputation, error) {
	if userID == "" {
		return model.Reputation{}, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrMissingField)
	}

	rep, err := s.feedback.GetReputation(ctx, userID)
	if err != nil {
		return model.Reputation{}, auctionerrors.Internal(fmt.Sprintf("service: failed to get reputation for %s", userID), err)
	}
	return rep, nil
}
