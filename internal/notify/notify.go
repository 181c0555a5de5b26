package notify

import (
	"context"
	"log/slog"
	"time"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingConfirmed = "booking.confirmed"
)

// BookingEvent is the message sent to the notification workers, which
// turn it into customer email/SMS.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	CustomerName  string    `json:"customer_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Pickup        string    `json:"pickup_location"`
	Dropoff       string    `json:"dropoff_location"`
	PickupTime    time.Time `json:"pickup_time"`
	Fare          float64   `json:"fare"`
	DepositAmount float64   `json:"deposit_amount"`
	BalanceDue    float64   `json:"balance_due"`
	RefundAmount  float64   `json:"refund_amount,omitempty"`
	PaymentURL    string    `json:"payment_url,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event BookingEvent) error
}

// LogNotifier only logs events. It is used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event BookingEvent) error {
	n.logger.InfoContext(ctx, "Booking notification",
		"type", event.Type,
		"booking_id", event.BookingID,
		"email", event.Email,
	)
	return nil
}
