package models

import (
	"context"
	"errors"
	"time"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in-progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

var ErrBookingNotFound = errors.New("booking not found")

// bookingTransitions lists the statuses each status may move to.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Booking struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"user_id,omitempty" json:"user_id,omitempty"`

	// customer
	CustomerName string `bson:"customer_name" json:"customer_name" validate:"required,max=120"`
	Email        string `bson:"email" json:"email" validate:"required,email"`
	Phone        string `bson:"phone" json:"phone" validate:"required,min=7,max=32"`

	// trip
	Pickup       string    `bson:"pickup_location" json:"pickup_location" validate:"required,max=300"`
	Dropoff      string    `bson:"dropoff_location" json:"dropoff_location" validate:"required,max=300"`
	PickupTime   time.Time `bson:"pickup_time" json:"pickup_time" validate:"required"`
	Passengers   int       `bson:"passengers" json:"passengers" validate:"min=1,max=14"`
	FlightNumber string    `bson:"flight_number,omitempty" json:"flight_number,omitempty" validate:"omitempty,max=12"`
	Notes        string    `bson:"notes,omitempty" json:"notes,omitempty" validate:"max=1000"`
	Distance     string    `bson:"distance,omitempty" json:"distance,omitempty"`
	Duration     string    `bson:"duration,omitempty" json:"duration,omitempty"`

	// money
	Fare           float64 `bson:"fare" json:"fare" validate:"gte=0"`
	DepositPercent float64 `bson:"deposit_percent" json:"deposit_percent"`
	DepositAmount  float64 `bson:"deposit_amount" json:"deposit_amount"`
	BalanceDue     float64 `bson:"balance_due" json:"balance_due"`
	DepositPaid    bool    `bson:"deposit_paid" json:"deposit_paid"`
	RefundAmount   float64 `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`

	PaymentSessionID string `bson:"payment_session_id,omitempty" json:"-"`
	PaymentURL       string `bson:"payment_url,omitempty" json:"payment_url,omitempty"`

	Status      BookingStatus `bson:"status" json:"status"`
	DriverID    string        `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	CancelledAt *time.Time    `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
}

type BookingFilter struct {
	Status BookingStatus
	Email  string
	UserID string
	Offset int
	Limit  int
}

type BookingStats struct {
	ByStatus         map[string]int64 `json:"by_status"`
	TotalBookings    int64            `json:"total_bookings"`
	CompletedRevenue float64          `json:"completed_revenue"`
	UpcomingToday    int64            `json:"upcoming_today"`
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) (*Booking, error)
	GetBookingByID(ctx context.Context, id string) (*Booking, error)
	UpdateBooking(ctx context.Context, id string, fields map[string]interface{}) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error)
	// FindActiveInWindow returns non-cancelled bookings with pickup time in (from, to).
	FindActiveInWindow(ctx context.Context, from, to time.Time) ([]*Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	BookingStats(ctx context.Context, now time.Time) (*BookingStats, error)
}
