package orders

import (
	"fmt"

	model "auction-engine/internal/models"
)

// CancelPolicy lists the order statuses the seller may cancel from
type CancelPolicy struct {
	from map[model.OrderStatus]struct{}
}

// DefaultCancelPolicy allows cancelling before shipment
func DefaultCancelPolicy() CancelPolicy {
	p, _ := NewCancelPolicy([]string{string(model.OrderPending), string(model.OrderPaid)})
	return p
}

// NewCancelPolicy parses a list of cancellable statuses. Terminal statuses are rejected.
func NewCancelPolicy(statuses []string) (CancelPolicy, error) {
	p := CancelPolicy{from: make(map[model.OrderStatus]struct{}, len(statuses))}
	for _, raw := range statuses {
		s, err := model.ParseOrderStatus(raw)
		if err != nil {
			return CancelPolicy{}, fmt.Errorf("cancel policy: %w", err)
		}
		if s.IsTerminal() {
			return CancelPolicy{}, fmt.Errorf("cancel policy: %s orders cannot be cancelled", s)
		}
		p.from[s] = struct{}{}
	}
	return p, nil
}

// Allows reports whether an order in status may be cancelled.
func (p CancelPolicy) Allows(status model.OrderStatus) bool {
	_, ok := p.from[status]
	return ok
}

// FeedbackPolicy decides when the winner may rate the seller
type FeedbackPolicy string

const (
	// FeedbackAfterSale opens feedback as soon as the auction is sold
	FeedbackAfterSale FeedbackPolicy = "after_sale"
	// FeedbackAfterCompletion waits until the winner confirmed receipt
	FeedbackAfterCompletion FeedbackPolicy = "after_completion"
)

// ParseFeedbackPolicy converts a configured value to a FeedbackPolicy
func ParseFeedbackPolicy(raw string) (FeedbackPolicy, error) {
	switch p := FeedbackPolicy(raw); p {
	case FeedbackAfterSale, FeedbackAfterCompletion:
		return p, nil
	case "":
		return FeedbackAfterSale, nil
	default:
		return "", fmt.Errorf("unknown feedback policy %q", raw)
	}
}
