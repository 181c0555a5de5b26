package services

import (
	"context"
	"time"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

// AvailabilityService decides whether a pickup time is free. The check is a
// plain read: two submissions racing for the same slot can both pass it.
type AvailabilityService struct {
	bookings models.BookingRepo
}

func NewAvailabilityService(bookings models.BookingRepo) *AvailabilityService {
	return &AvailabilityService{bookings: bookings}
}

func (a *AvailabilityService) IsTimeSlotAvailable(ctx context.Context, proposed time.Time, bufferMinutes int) (bool, error) {
	return a.IsTimeSlotAvailableExcept(ctx, proposed, bufferMinutes, "")
}

// IsTimeSlotAvailableExcept ignores the booking with id exceptID, so a
// booking being edited does not conflict with itself.
func (a *AvailabilityService) IsTimeSlotAvailableExcept(ctx context.Context, proposed time.Time, bufferMinutes int, exceptID string) (bool, error) {
	conflicts, err := a.Conflicts(ctx, proposed, bufferMinutes, exceptID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Conflicts returns the non-cancelled bookings whose pickup time is strictly
// less than bufferMinutes away from proposed.
func (a *AvailabilityService) Conflicts(ctx context.Context, proposed time.Time, bufferMinutes int, exceptID string) ([]*models.Booking, error) {
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	window := time.Duration(bufferMinutes) * time.Minute

	candidates, err := a.bookings.FindActiveInWindow(ctx, proposed.Add(-window), proposed.Add(window))
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not check availability. Please try again.", Err: err}
	}

	var conflicts []*models.Booking
	for _, b := range candidates {
		if b.ID == exceptID || b.Status == models.StatusCancelled {
			continue
		}
		diff := b.PickupTime.Sub(proposed)
		if diff < 0 {
			diff = -diff
		}
		if diff < window {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}
