package eligibility

import (
	"context"
	"fmt"

	model "auction-engine/internal/models"
)

// Policy decides whether a bidder may bid on an auction at all.
// It runs after the ban check and before the price check.
type Policy interface {
	CanBid(ctx context.Context, auction model.Auction, bidderID string) (bool, error)
}

// AllowAll admits every bidder
type AllowAll struct{}

func (AllowAll) CanBid(context.Context, model.Auction, string) (bool, error) { return true, nil }

// ReputationSource returns the ratings a user has received
type ReputationSource interface {
	GetReputation(ctx context.Context, userID string) (model.Reputation, error)
}

// ReputationPolicy only admits bidders on restricted auctions whose feedback
// record has at least MinSamples ratings and a good share of at least MinRatio.
// Unrestricted auctions admit everyone.
type ReputationPolicy struct {
	MinSamples int
	MinRatio   float64
	Source     ReputationSource
}

// NewReputationPolicy creates a ReputationPolicy backed by source
func NewReputationPolicy(source ReputationSource, minSamples int, minRatio float64) *ReputationPolicy {
	return &ReputationPolicy{MinSamples: minSamples, MinRatio: minRatio, Source: source}
}

func (p *ReputationPolicy) CanBid(ctx context.Context, auction model.Auction, bidderID string) (bool, error) {
	if !auction.RestrictBidders {
		return true, nil
	}

	rep, err := p.Source.GetReputation(ctx, bidderID)
	if err != nil {
		return false, fmt.Errorf("eligibility: reputation for %s: %w", bidderID, err)
	}
	return Qualifies(rep, p.MinSamples, p.MinRatio), nil
}

// Qualifies applies the sample-size and ratio thresholds to rep.
func Qualifies(rep model.Reputation, minSamples int, minRatio float64) bool {
	total := rep.Total()
	if total == 0 || total < minSamples {
		return false
	}
	return float64(rep.Good)/float64(total) >= minRatio
}
