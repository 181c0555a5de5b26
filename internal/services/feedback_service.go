package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

type FeedbackService struct {
	feedback models.FeedbackRepo
	drivers  models.DriverRepo
	booking  *BookingService
	logger   *slog.Logger
}

func NewFeedbackService(feedback models.FeedbackRepo, drivers models.DriverRepo, booking *BookingService, logger *slog.Logger) *FeedbackService {
	return &FeedbackService{feedback: feedback, drivers: drivers, booking: booking, logger: logger}
}

// SubmitFeedback records the customer's one rating of a completed ride and
// folds it into the driver's average.
func (f *FeedbackService) SubmitFeedback(ctx context.Context, bookingID string, rating int, comment string) (*models.Feedback, error) {
	b, err := f.booking.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusCompleted {
		return nil, domain.ValidationError{Msg: "Feedback can only be left for completed rides."}
	}

	fb := &models.Feedback{
		BookingID: b.ID,
		DriverID:  b.DriverID,
		Rating:    rating,
		Comment:   comment,
	}
	fb.Sanitize()
	if err := validateStruct(fb); err != nil {
		return nil, err
	}

	created, err := f.feedback.CreateFeedback(ctx, fb)
	if errors.Is(err, models.ErrDuplicateFeedback) {
		return nil, domain.ConflictError{Resource: "feedback", Msg: "Feedback was already submitted for this ride.", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not save your feedback.", Err: err}
	}

	if created.DriverID != "" {
		if err := f.drivers.AddRating(ctx, created.DriverID, created.Rating); err != nil {
			f.logger.WarnContext(ctx, "Failed to update driver rating", "driver_id", created.DriverID, "error", err)
		}
	}
	return created, nil
}
