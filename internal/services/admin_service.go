package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
)

// editableBookingFields maps the booking fields an admin may edit one at a
// time to their validation rules.
var editableBookingFields = map[string]string{
	"customer_name": "required,max=120",
	"email":         "required,email",
	"phone":         "required,min=7,max=32",
	"passengers":    "min=1,max=14",
	"flight_number": "omitempty,max=12",
	"notes":         "max=1000",
}

type Overview struct {
	Bookings *models.BookingStats `json:"bookings"`
	Drivers  map[string]int64     `json:"drivers"`
}

type AdminService struct {
	bookings models.BookingRepo
	drivers  models.DriverRepo
	feedback models.FeedbackRepo
	booking  *BookingService
	logger   *slog.Logger
}

func NewAdminService(bookings models.BookingRepo, drivers models.DriverRepo, feedback models.FeedbackRepo, booking *BookingService, logger *slog.Logger) *AdminService {
	return &AdminService{
		bookings: bookings,
		drivers:  drivers,
		feedback: feedback,
		booking:  booking,
		logger:   logger,
	}
}

func (a *AdminService) ListBookings(ctx context.Context, status string, page, limit int) ([]*models.Booking, int64, error) {
	filter := models.BookingFilter{}
	if status != "" {
		st := models.BookingStatus(status)
		if !st.Valid() {
			return nil, 0, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
		}
		filter.Status = st
	}
	page, limit = NormalizePage(page, limit)
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	bookings, total, err := a.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, 0, domain.UpstreamError{Msg: "Could not load bookings.", Err: err}
	}
	return bookings, total, nil
}

func (a *AdminService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return a.booking.GetBooking(ctx, id)
}

// UpdateBookingField edits one whitelisted customer-facing field.
func (a *AdminService) UpdateBookingField(ctx context.Context, id, field string, value interface{}) (*models.Booking, error) {
	rule, ok := editableBookingFields[field]
	if !ok {
		return nil, domain.ValidationError{Field: field, Msg: fmt.Sprintf("%s cannot be edited", field)}
	}

	v, err := coerceField(field, value)
	if err != nil {
		return nil, domain.ValidationError{Field: field, Msg: err.Error()}
	}
	if err := models.Validate.Var(v, rule); err != nil {
		return nil, domain.ValidationError{Field: field, Msg: fmt.Sprintf("%s is invalid", field), Err: err}
	}

	updated, err := a.bookings.UpdateBooking(ctx, id, map[string]interface{}{field: v})
	if errors.Is(err, models.ErrBookingNotFound) {
		return nil, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not update the booking.", Err: err}
	}
	a.logger.InfoContext(ctx, "Booking field updated", "booking_id", id, "field", field)
	return updated, nil
}

func coerceField(field string, value interface{}) (interface{}, error) {
	if field == "passengers" {
		switch n := value.(type) {
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("passengers must be a whole number")
			}
			return int(n), nil
		case int:
			return n, nil
		default:
			return nil, fmt.Errorf("passengers must be a number")
		}
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", field)
	}
	s = strings.TrimSpace(s)
	if field == "email" {
		s = strings.ToLower(s)
	}
	return s, nil
}

// UpdateBookingStatus moves a booking along its lifecycle and keeps the
// assigned driver in step: busy while the ride is in progress, available
// (with one more ride counted) once it completes.
func (a *AdminService) UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	next := models.BookingStatus(status)
	if !next.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
	}

	b, err := a.booking.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(next) {
		return nil, domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("A %s booking cannot be moved to %s.", b.Status, next),
		}
	}

	fields := map[string]interface{}{"status": next}
	if next == models.StatusCancelled {
		now := a.booking.now()
		refund, err := a.booking.cancellationRefund(ctx, b, now)
		if err != nil {
			return nil, err
		}
		fields["cancelled_at"] = now
		fields["refund_amount"] = refund
	}
	updated, err := a.bookings.UpdateBooking(ctx, id, fields)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not update the booking status.", Err: err}
	}
	a.logger.InfoContext(ctx, "Booking status changed", "booking_id", id, "from", b.Status, "to", next)

	if updated.DriverID != "" {
		a.syncDriver(ctx, updated.DriverID, next)
	}

	switch next {
	case models.StatusConfirmed:
		a.booking.dispatch(ctx, notify.EventBookingConfirmed, updated)
	case models.StatusCancelled:
		a.booking.dispatch(ctx, notify.EventBookingCancelled, updated)
	}
	return updated, nil
}

func (a *AdminService) syncDriver(ctx context.Context, driverID string, status models.BookingStatus) {
	var err error
	switch status {
	case models.StatusInProgress:
		_, err = a.drivers.UpdateDriver(ctx, driverID, map[string]interface{}{"status": models.DriverBusy})
	case models.StatusCompleted:
		if err = a.drivers.IncrementRides(ctx, driverID); err == nil {
			_, err = a.drivers.UpdateDriver(ctx, driverID, map[string]interface{}{"status": models.DriverAvailable})
		}
	case models.StatusCancelled:
		_, err = a.drivers.UpdateDriver(ctx, driverID, map[string]interface{}{"status": models.DriverAvailable})
	}
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to update driver for booking status", "driver_id", driverID, "status", status, "error", err)
	}
}

func (a *AdminService) AssignDriver(ctx context.Context, bookingID, driverID string) (*models.Booking, error) {
	b, err := a.booking.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, domain.ConflictError{Resource: "booking", Msg: "Drivers cannot be assigned to a finished booking."}
	}

	driver, err := a.drivers.GetDriverByID(ctx, driverID)
	if errors.Is(err, models.ErrDriverNotFound) {
		return nil, domain.NotFoundError{Resource: "driver", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load the driver.", Err: err}
	}
	if driver.Status == models.DriverOffline {
		return nil, domain.ConflictError{Resource: "driver", Msg: "This driver is offline."}
	}

	updated, err := a.bookings.UpdateBooking(ctx, bookingID, map[string]interface{}{"driver_id": driver.ID})
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not assign the driver.", Err: err}
	}
	a.logger.InfoContext(ctx, "Driver assigned", "booking_id", bookingID, "driver_id", driver.ID)
	return updated, nil
}

func (a *AdminService) DeleteBooking(ctx context.Context, id string) error {
	err := a.bookings.DeleteBooking(ctx, id)
	if errors.Is(err, models.ErrBookingNotFound) {
		return domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return domain.UpstreamError{Msg: "Could not delete the booking.", Err: err}
	}
	a.logger.InfoContext(ctx, "Booking deleted", "booking_id", id)
	return nil
}

func (a *AdminService) Overview(ctx context.Context) (*Overview, error) {
	stats, err := a.bookings.BookingStats(ctx, a.booking.now())
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load the overview.", Err: err}
	}
	drivers, err := a.drivers.DriverStatusCounts(ctx)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load the overview.", Err: err}
	}
	return &Overview{Bookings: stats, Drivers: drivers}, nil
}

func (a *AdminService) ListFeedback(ctx context.Context, limit int) ([]*models.Feedback, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	items, err := a.feedback.ListFeedback(ctx, limit)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load feedback.", Err: err}
	}
	return items, nil
}
