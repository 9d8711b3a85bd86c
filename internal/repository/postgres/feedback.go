package postgres

import (
	"context"
	"fmt"

	model "auction-engine/internal/models"
)

// CreateFeedback stores feedback; a second entry for the same auction and reviewer is a conflict
func (s *Store) CreateFeedback(ctx context.Context, fb model.Feedback) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback (feedback_id, auction_id, reviewer_id, target_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fb.FeedbackID, fb.AuctionID, fb.ReviewerID, fb.TargetID, int(fb.Rating), fb.Comment, fb.CreatedAt)
	if err != nil {
		return mapConstraint(fmt.Sprintf("create feedback for auction %s by %s", fb.AuctionID, fb.ReviewerID), err)
	}
	return nil
}

// ListFeedbackByAuction returns the feedback left on an auction
func (s *Store) ListFeedbackByAuction(ctx context.Context, auctionID string) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feedback_id, auction_id, reviewer_id, target_id, rating, comment, created_at
		FROM feedback WHERE auction_id = $1 ORDER BY created_at, feedback_id`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	items := make([]model.Feedback, 0)
	for rows.Next() {
		var (
			fb     model.Feedback
			rating int
		)
		if err := rows.Scan(&fb.FeedbackID, &fb.AuctionID, &fb.ReviewerID, &fb.TargetID, &rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("list feedback for auction %s: %w", auctionID, err)
		}
		fb.Rating = model.Rating(rating)
		fb.CreatedAt = fb.CreatedAt.UTC()
		items = append(items, fb)
	}
	return items, rows.Err()
}

// GetReputation returns the good and bad ratings a user has received
func (s *Store) GetReputation(ctx context.Context, userID string) (model.Reputation, error) {
	var rep model.Reputation
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*) FILTER (WHERE rating = 1),
		COUNT(*) FILTER (WHERE rating = -1)
		FROM feedback WHERE target_id = $1`, userID).Scan(&rep.Good, &rep.Bad)
	if err != nil {
		return model.Reputation{}, fmt.Errorf("get reputation for %s: %w", userID, err)
	}
	return rep, nil
}
