package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel the AMQP notifier needs
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes events as JSON to a durable RabbitMQ queue
type AMQPNotifier struct {
	mu    sync.Mutex
	ch    Publisher
	queue string
}

// NewAMQPNotifier opens a channel on conn and declares queue
func NewAMQPNotifier(conn *amqp.Connection, queue string) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("notify: declare queue %s: %w", queue, err)
	}
	return NewAMQPNotifierWithPublisher(ch, queue), nil
}

// NewAMQPNotifierWithPublisher wraps an already prepared channel
func NewAMQPNotifierWithPublisher(ch Publisher, queue string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, queue: queue}
}

// Encode builds the AMQP message for event
func Encode(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("notify: encode %s: %w", event.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event Event) error {
	msg, err := Encode(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.ch.PublishWithContext(ctx, "", n.queue, false, false, msg); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close closes the underlying channel
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch.Close()
}
