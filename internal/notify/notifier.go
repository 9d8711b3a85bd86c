package notify

import (
	"context"
	"errors"
	"time"

	"auction-engine/utils"
)

// EventType names a notification the core asks to be delivered
type EventType string

const (
	EventBidPlaced      EventType = "bid.placed"
	EventOutbid         EventType = "bid.outbid"
	EventAuctionSold    EventType = "auction.sold"
	EventAuctionExpired EventType = "auction.expired"
	EventOrderUpdated   EventType = "order.updated"
)

// Event is a delivery request. Rendering and transport belong to the consumer.
type Event struct {
	Type       EventType      `json:"type"`
	AuctionID  string         `json:"auction_id,omitempty"`
	OrderID    string         `json:"order_id,omitempty"`
	Recipients []string       `json:"recipients"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier requests delivery of an event. Callers log failures and carry on;
// a notification never rolls back a committed bid, sweep or order step.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to the structured log
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event Event) error {
	utils.Info("notification", map[string]any{
		"type":       string(event.Type),
		"auction_id": event.AuctionID,
		"order_id":   event.OrderID,
		"recipients": event.Recipients,
	})
	return nil
}

// Multi fans an event out to several notifiers and joins their errors
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send delivers event through n and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, event Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, event); err != nil {
		utils.Warn("notification failed", map[string]any{
			"type":       string(event.Type),
			"auction_id": event.AuctionID,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
	}
}
