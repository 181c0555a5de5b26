package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
	"github.com/joshua-takyi/airportcar/internal/payments"
)

const (
	MsgFareFailed     = "Could not calculate fare. Please check the addresses."
	MsgCalculateFirst = "Please calculate the fare first."
	MsgSlotTaken      = "This time slot is no longer available. Please choose a different time."
	MsgRouteChanged   = "The addresses changed since the fare was calculated. Please calculate the fare again."
	MsgSaveFailed     = "Could not save your booking. Please try again."

	notifyTimeout = 15 * time.Second
)

// pickupLayouts are the accepted pickup_time formats. Times without a zone
// are taken as UTC.
var pickupLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

type PaymentGateway interface {
	CreateDepositLink(ctx context.Context, req payments.DepositRequest) (*payments.CheckoutLink, error)
}

// BookingForm is the customer-facing booking form as submitted.
type BookingForm struct {
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Pickup       string `json:"pickup_location"`
	Dropoff      string `json:"dropoff_location"`
	PickupTime   string `json:"pickup_time"`
	Passengers   int    `json:"passengers"`
	FlightNumber string `json:"flight_number,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func (f *BookingForm) normalize() {
	f.CustomerName = helpers.StringTrim(f.CustomerName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
	f.Pickup = helpers.StringTrim(f.Pickup)
	f.Dropoff = helpers.StringTrim(f.Dropoff)
	f.PickupTime = strings.TrimSpace(f.PickupTime)
	f.FlightNumber = strings.ToUpper(strings.ReplaceAll(f.FlightNumber, " ", ""))
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Passengers == 0 {
		f.Passengers = 1
	}
}

func (f *BookingForm) missingFields() []string {
	var missing []string
	check := func(name, v string) {
		if v == "" {
			missing = append(missing, name)
		}
	}
	check("customer_name", f.CustomerName)
	check("email", f.Email)
	check("phone", f.Phone)
	check("pickup_location", f.Pickup)
	check("dropoff_location", f.Dropoff)
	check("pickup_time", f.PickupTime)
	return missing
}

type SubmitOptions struct {
	// EditID switches the submission to update the existing booking.
	EditID string
	UserID string
}

type BookingResult struct {
	ID         string          `json:"id"`
	Booking    *models.Booking `json:"booking"`
	Redirect   string          `json:"redirect"`
	PaymentURL string          `json:"payment_url,omitempty"`
}

// EditFormView pre-populates the booking form for an existing booking.
type EditFormView struct {
	BookingID string               `json:"booking_id"`
	Form      BookingForm          `json:"form"`
	Fare      float64              `json:"fare"`
	Distance  string               `json:"distance,omitempty"`
	Duration  string               `json:"duration,omitempty"`
	Status    models.BookingStatus `json:"status"`
}

type BookingService struct {
	bookings     models.BookingRepo
	quotes       models.QuoteRepo
	fares        *FareService
	settings     *SettingsService
	availability *AvailabilityService
	notifier     notify.Notifier
	payments     PaymentGateway
	quoteTTL     time.Duration
	logger       *slog.Logger

	now func() time.Time
	wg  sync.WaitGroup
}

// NewBookingService wires the booking form controller. notifier and
// gateway may be nil; the matching side effect is then skipped.
func NewBookingService(
	bookings models.BookingRepo,
	quotes models.QuoteRepo,
	fares *FareService,
	settings *SettingsService,
	availability *AvailabilityService,
	notifier notify.Notifier,
	gateway PaymentGateway,
	quoteTTL time.Duration,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		quotes:       quotes,
		fares:        fares,
		settings:     settings,
		availability: availability,
		notifier:     notifier,
		payments:     gateway,
		quoteTTL:     quoteTTL,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CalculateFare prices the route and stores the result as the form
// session's quote. Any failure clears the stored quote.
func (s *BookingService) CalculateFare(ctx context.Context, sessionID, origin, destination string) (*FareEstimate, error) {
	if sessionID == "" {
		return nil, domain.ValidationError{Msg: "missing booking session"}
	}
	origin = helpers.StringTrim(origin)
	destination = helpers.StringTrim(destination)

	if origin == "" || destination == "" {
		s.clearQuote(ctx, sessionID)
		var missing []string
		if origin == "" {
			missing = append(missing, "origin")
		}
		if destination == "" {
			missing = append(missing, "destination")
		}
		return nil, domain.ValidationError{Fields: missing, Msg: MsgFareFailed}
	}

	est, err := s.fares.EstimateFare(ctx, origin, destination)
	if err != nil {
		s.clearQuote(ctx, sessionID)
		s.logger.WarnContext(ctx, "Fare calculation failed",
			"origin", origin,
			"destination", destination,
			"error", err,
		)
		return nil, domain.UpstreamError{Msg: MsgFareFailed, Err: err}
	}

	now := s.now()
	quote := &models.FareQuote{
		SessionID:   sessionID,
		Origin:      origin,
		Destination: destination,
		Fare:        est.Fare,
		Distance:    est.Distance,
		Duration:    est.Duration,
		Zone:        est.Zone,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.quoteTTL),
	}
	if err := s.quotes.SaveQuote(ctx, quote); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store fare quote", "error", err)
		return nil, domain.UpstreamError{Msg: MsgFareFailed, Err: err}
	}
	return est, nil
}

func (s *BookingService) clearQuote(ctx context.Context, sessionID string) {
	if err := s.quotes.DeleteQuote(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear fare quote", "error", err)
	}
}

// SubmitBooking validates the form against the session's quote and the
// current availability, then creates the booking (or updates it when
// opts.EditID is set). Nothing is written when any check fails.
func (s *BookingService) SubmitBooking(ctx context.Context, sessionID string, form BookingForm, opts SubmitOptions) (*BookingResult, error) {
	form.normalize()

	var quote *models.FareQuote
	if sessionID != "" {
		q, err := s.quotes.GetQuote(ctx, sessionID)
		switch {
		case err == nil:
			quote = q
		case errors.Is(err, models.ErrQuoteNotFound):
		default:
			return nil, domain.UpstreamError{Msg: MsgSaveFailed, Err: err}
		}
	}

	var existing *models.Booking
	if opts.EditID != "" {
		b, err := s.GetBooking(ctx, opts.EditID)
		if err != nil {
			return nil, err
		}
		if b.Status != models.StatusPending {
			return nil, domain.ConflictError{Resource: "booking", Msg: "This booking can no longer be changed."}
		}
		existing = b
	}

	fare, distance, duration, ok := s.resolveFare(quote, existing, form)
	if !ok {
		return nil, domain.ValidationError{Msg: MsgCalculateFirst}
	}

	if missing := form.missingFields(); len(missing) > 0 {
		return nil, domain.ValidationError{Fields: missing}
	}

	pickupTime, err := parsePickupTime(form.PickupTime)
	if err != nil {
		return nil, domain.ValidationError{Field: "pickup_time", Msg: "pickup_time must be a valid date and time"}
	}

	candidate := &models.Booking{
		CustomerName: form.CustomerName,
		Email:        form.Email,
		Phone:        form.Phone,
		Pickup:       form.Pickup,
		Dropoff:      form.Dropoff,
		PickupTime:   pickupTime,
		Passengers:   form.Passengers,
		FlightNumber: form.FlightNumber,
		Notes:        form.Notes,
		Distance:     distance,
		Duration:     duration,
		Fare:         fare,
	}
	if err := validateStruct(candidate); err != nil {
		return nil, err
	}

	now := s.now()
	if !pickupTime.After(now) {
		return nil, domain.ValidationError{Field: "pickup_time", Msg: "Pickup time must be in the future."}
	}

	if quote != nil && !sameRoute(quote.Origin, quote.Destination, form.Pickup, form.Dropoff) {
		return nil, domain.ValidationError{Msg: MsgRouteChanged}
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	available, err := s.availability.IsTimeSlotAvailableExcept(ctx, pickupTime, settings.BufferMinutes, opts.EditID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, domain.ConflictError{Resource: "time slot", Msg: MsgSlotTaken}
	}

	var saved *models.Booking
	eventType := notify.EventBookingCreated
	if existing == nil {
		saved, err = s.create(ctx, candidate, settings, opts.UserID, now)
	} else {
		saved, err = s.update(ctx, existing, candidate)
		eventType = notify.EventBookingUpdated
	}
	if err != nil {
		return nil, err
	}

	if quote != nil {
		s.clearQuote(ctx, sessionID)
	}

	s.attachPaymentLink(ctx, saved)
	s.dispatch(ctx, eventType, saved)

	return &BookingResult{
		ID:         saved.ID,
		Booking:    saved,
		Redirect:   "/booking/" + saved.ID,
		PaymentURL: saved.PaymentURL,
	}, nil
}

// resolveFare picks the fare a submission is priced at: the session's quote,
// or in edit mode the booking's stored fare when the route is unchanged.
func (s *BookingService) resolveFare(quote *models.FareQuote, existing *models.Booking, form BookingForm) (fare float64, distance, duration string, ok bool) {
	if quote != nil {
		return quote.Fare, quote.Distance, quote.Duration, true
	}
	if existing != nil && sameRoute(existing.Pickup, existing.Dropoff, form.Pickup, form.Dropoff) {
		return existing.Fare, existing.Distance, existing.Duration, true
	}
	return 0, "", "", false
}

func (s *BookingService) create(ctx context.Context, b *models.Booking, settings *models.Settings, userID string, now time.Time) (*models.Booking, error) {
	b.ID = uuid.New().String()
	b.UserID = userID
	b.Status = models.StatusPending
	b.DepositPercent = settings.DepositPercent
	b.DepositAmount, b.BalanceDue = helpers.SplitDeposit(b.Fare, settings.DepositPercent)
	b.CreatedAt = now
	b.UpdatedAt = now

	saved, err := s.bookings.CreateBooking(ctx, b)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create booking", "error", err)
		return nil, domain.UpstreamError{Msg: MsgSaveFailed, Err: err}
	}
	s.logger.InfoContext(ctx, "Booking created", "booking_id", saved.ID, "fare", saved.Fare)
	return saved, nil
}

// update keeps the deposit percentage snapshotted at creation.
func (s *BookingService) update(ctx context.Context, existing, b *models.Booking) (*models.Booking, error) {
	deposit, balance := helpers.SplitDeposit(b.Fare, existing.DepositPercent)
	fields := map[string]interface{}{
		"customer_name":    b.CustomerName,
		"email":            b.Email,
		"phone":            b.Phone,
		"pickup_location":  b.Pickup,
		"dropoff_location": b.Dropoff,
		"pickup_time":      b.PickupTime,
		"passengers":       b.Passengers,
		"flight_number":    b.FlightNumber,
		"notes":            b.Notes,
		"distance":         b.Distance,
		"duration":         b.Duration,
		"fare":             b.Fare,
		"deposit_amount":   deposit,
		"balance_due":      balance,
	}
	saved, err := s.bookings.UpdateBooking(ctx, existing.ID, fields)
	if errors.Is(err, models.ErrBookingNotFound) {
		return nil, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update booking", "booking_id", existing.ID, "error", err)
		return nil, domain.UpstreamError{Msg: MsgSaveFailed, Err: err}
	}
	s.logger.InfoContext(ctx, "Booking updated", "booking_id", saved.ID)
	return saved, nil
}

// attachPaymentLink creates a deposit checkout link. Failures leave the
// booking without a link; the customer can pay later.
func (s *BookingService) attachPaymentLink(ctx context.Context, b *models.Booking) {
	if s.payments == nil || b.DepositPaid || b.DepositAmount <= 0 {
		return
	}

	link, err := s.payments.CreateDepositLink(ctx, payments.DepositRequest{
		BookingID:   b.ID,
		Email:       b.Email,
		Description: fmt.Sprintf("Ride deposit: %s to %s", b.Pickup, b.Dropoff),
		AmountCents: helpers.ToCents(b.DepositAmount),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to create payment link", "booking_id", b.ID, "error", err)
		return
	}

	updated, err := s.bookings.UpdateBooking(ctx, b.ID, map[string]interface{}{
		"payment_session_id": link.SessionID,
		"payment_url":        link.URL,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to store payment link", "booking_id", b.ID, "error", err)
		b.PaymentURL = link.URL
		return
	}
	*b = *updated
}

// dispatch sends the notification in the background. Delivery failures are
// logged and never affect the booking.
func (s *BookingService) dispatch(ctx context.Context, eventType string, b *models.Booking) {
	if s.notifier == nil {
		return
	}
	event := bookingEvent(eventType, b, s.now())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Booking notification failed",
				"type", event.Type,
				"booking_id", event.BookingID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight notifications have finished.
func (s *BookingService) Wait() {
	s.wg.Wait()
}

func bookingEvent(eventType string, b *models.Booking, at time.Time) notify.BookingEvent {
	return notify.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		CustomerName:  b.CustomerName,
		Email:         b.Email,
		Phone:         b.Phone,
		Pickup:        b.Pickup,
		Dropoff:       b.Dropoff,
		PickupTime:    b.PickupTime,
		Fare:          b.Fare,
		DepositAmount: b.DepositAmount,
		BalanceDue:    b.BalanceDue,
		RefundAmount:  b.RefundAmount,
		PaymentURL:    b.PaymentURL,
		Status:        string(b.Status),
		OccurredAt:    at,
	}
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "booking id is required"}
	}
	b, err := s.bookings.GetBookingByID(ctx, id)
	if errors.Is(err, models.ErrBookingNotFound) {
		return nil, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not load the booking.", Err: err}
	}
	return b, nil
}

func (s *BookingService) EditForm(ctx context.Context, id string) (*EditFormView, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EditFormView{
		BookingID: b.ID,
		Form: BookingForm{
			CustomerName: b.CustomerName,
			Email:        b.Email,
			Phone:        b.Phone,
			Pickup:       b.Pickup,
			Dropoff:      b.Dropoff,
			PickupTime:   b.PickupTime.UTC().Format(time.RFC3339),
			Passengers:   b.Passengers,
			FlightNumber: b.FlightNumber,
			Notes:        b.Notes,
		},
		Fare:     b.Fare,
		Distance: b.Distance,
		Duration: b.Duration,
		Status:   b.Status,
	}, nil
}

// CancelBooking cancels a pending or confirmed booking on the customer's
// behalf and records the deposit refund due under the refund tiers.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusPending && b.Status != models.StatusConfirmed {
		return nil, domain.ConflictError{Resource: "booking", Msg: "This booking can no longer be cancelled."}
	}

	now := s.now()
	refund, err := s.cancellationRefund(ctx, b, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateBooking(ctx, b.ID, map[string]interface{}{
		"status":        models.StatusCancelled,
		"cancelled_at":  now,
		"refund_amount": refund,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to cancel booking", "booking_id", b.ID, "error", err)
		return nil, domain.UpstreamError{Msg: "Could not cancel the booking. Please try again.", Err: err}
	}

	s.logger.InfoContext(ctx, "Booking cancelled", "booking_id", b.ID, "refund", refund)
	s.dispatch(ctx, notify.EventBookingCancelled, updated)
	return updated, nil
}

// cancellationRefund is the share of a paid deposit returned when b is
// cancelled at now, under the configured refund tiers.
func (s *BookingService) cancellationRefund(ctx context.Context, b *models.Booking, now time.Time) (float64, error) {
	if !b.DepositPaid {
		return 0, nil
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	refund, _ := helpers.SplitDeposit(b.DepositAmount, settings.RefundPercent(b.PickupTime.Sub(now)))
	return refund, nil
}

// MarkDepositPaid records a completed deposit payment and confirms a
// pending booking. A deposit that arrives after the booking was cancelled
// is recorded as owed back in full. Repeated calls are no-ops.
func (s *BookingService) MarkDepositPaid(ctx context.Context, bookingID, paymentSessionID string) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.DepositPaid {
		return b, nil
	}

	fields := map[string]interface{}{"deposit_paid": true}
	if paymentSessionID != "" {
		fields["payment_session_id"] = paymentSessionID
	}
	confirm := b.Status == models.StatusPending
	if confirm {
		fields["status"] = models.StatusConfirmed
	}
	if b.Status == models.StatusCancelled {
		fields["refund_amount"] = b.DepositAmount
	}

	updated, err := s.bookings.UpdateBooking(ctx, b.ID, fields)
	if err != nil {
		return nil, domain.UpstreamError{Msg: "Could not record the payment.", Err: err}
	}

	if b.Status == models.StatusCancelled {
		s.logger.WarnContext(ctx, "Deposit paid on a cancelled booking, full refund due", "booking_id", b.ID, "refund", b.DepositAmount)
		return updated, nil
	}
	s.logger.InfoContext(ctx, "Deposit paid", "booking_id", b.ID, "confirmed", confirm)
	if confirm {
		s.dispatch(ctx, notify.EventBookingConfirmed, updated)
	}
	return updated, nil
}

func (s *BookingService) ListCustomerBookings(ctx context.Context, userID, email string, page, limit int) ([]*models.Booking, int64, error) {
	if userID == "" && email == "" {
		return []*models.Booking{}, 0, nil
	}
	page, limit = NormalizePage(page, limit)
	bookings, total, err := s.bookings.ListBookings(ctx, models.BookingFilter{
		UserID: userID,
		Email:  strings.ToLower(email),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, 0, domain.UpstreamError{Msg: "Could not load your bookings.", Err: err}
	}
	return bookings, total, nil
}

// CanAccess reports whether a caller may view a booking: anyone who may
// manage it, or anyone presenting the booking's email.
func CanAccess(b *models.Booking, session *helpers.SessionState, email string) bool {
	return CanManage(b, session) || sameEmail(email, b.Email)
}

// CanManage reports whether a caller may change or cancel a booking. A
// presented email is not enough; the caller must be an admin, the owning
// account, or signed in with the booking's email.
func CanManage(b *models.Booking, session *helpers.SessionState) bool {
	if session == nil {
		return false
	}
	if session.IsAdmin {
		return true
	}
	if !session.Authenticated() {
		return false
	}
	if b.UserID == session.UserID {
		return true
	}
	return sameEmail(session.Email, b.Email)
}

func sameEmail(presented, stored string) bool {
	presented = strings.ToLower(strings.TrimSpace(presented))
	return presented != "" && presented == strings.ToLower(stored)
}

func parsePickupTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range pickupLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func sameRoute(origin, destination, pickup, dropoff string) bool {
	norm := func(s string) string { return strings.ToLower(helpers.StringTrim(s)) }
	return norm(origin) == norm(pickup) && norm(destination) == norm(dropoff)
}

// NormalizePage clamps pagination input: page from 1, limit 1..100
// (default 20).
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
