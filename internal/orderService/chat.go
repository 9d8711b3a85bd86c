package orders

import (
	"context"
	"fmt"
	"strings"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
)

// MaxMessageLength caps a single chat message
const MaxMessageLength = 2000

// SendMessage appends a message to the order chat. Chat stays open in every order status.
func (s *OrderService) SendMessage(ctx context.Context, orderID, senderID, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, fmt.Errorf("service: %w - empty message", auctionerrors.ErrMissingField)
	}
	if len([]rune(content)) > MaxMessageLength {
		return model.Message{}, fmt.Errorf("service: %w - message longer than %d characters", auctionerrors.ErrInvalidMessage, MaxMessageLength)
	}

	if _, err := s.GetOrder(ctx, orderID, senderID); err != nil {
		return model.Message{}, err
	}

	msg, err := s.orders.AppendMessage(ctx, model.Message{
		OrderID:   orderID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return model.Message{}, auctionerrors.Internal(fmt.Sprintf("service: failed to send message on order %s", orderID), err)
	}
	return msg, nil
}

// ListMessages returns chat messages newer than afterID, oldest first
func (s *OrderService) ListMessages(ctx context.Context, orderID, requesterID string, afterID uint64, limit int) ([]model.Message, error) {
	if _, err := s.GetOrder(ctx, orderID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := s.orders.ListMessages(ctx, orderID, afterID, limit)
	if err != nil {
		return nil, auctionerrors.Internal(fmt.Sprintf("service: failed to list messages on order %s", orderID), err)
	}
	return msgs, nil
}
