package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes booking events to a durable topic exchange with the
// event type as routing key.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func NewPublisher(ch *amqp.Channel, exchange string, logger *slog.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

func (p *Publisher) Notify(ctx context.Context, event BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.BookingID + ":" + event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Booking event published", "type", event.Type, "booking_id", event.BookingID)
	return nil
}
