package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/geo"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type bookingFixture struct {
	svc      *BookingService
	bookings *fakeBookingRepo
	quotes   *fakeQuoteRepo
	settings *fakeSettingsRepo
	routes   *fakeRoutes
	notifier *fakeNotifier
	gateway  *fakeGateway
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings: newFakeBookingRepo(),
		quotes:   newFakeQuoteRepo(),
		settings: &fakeSettingsRepo{},
		routes: &fakeRoutes{route: &geo.Route{
			Miles: 10, Minutes: 20, DistanceText: "10.0 mi", DurationText: "20 mins",
		}},
		notifier: &fakeNotifier{},
		gateway:  &fakeGateway{},
	}
	logger := testLogger()
	settings := NewSettingsService(f.settings, logger)
	f.svc = NewBookingService(
		f.bookings,
		f.quotes,
		NewFareService(f.routes, settings),
		settings,
		NewAvailabilityService(f.bookings),
		f.notifier,
		f.gateway,
		30*time.Minute,
		logger,
	)
	f.svc.now = func() time.Time { return fixedNow }
	t.Cleanup(f.svc.Wait)
	return f
}

func validForm(pickup time.Time) BookingForm {
	return BookingForm{
		CustomerName: "Ada Rider",
		Email:        "Ada@Example.com",
		Phone:        "+1 555 0100",
		Pickup:       "JFK Airport",
		Dropoff:      "Times Square",
		PickupTime:   pickup.Format(time.RFC3339),
		Passengers:   2,
	}
}

func (f *bookingFixture) quote(t *testing.T, session string) *FareEstimate {
	t.Helper()
	est, err := f.svc.CalculateFare(context.Background(), session, "JFK Airport", "Times Square")
	if err != nil {
		t.Fatalf("CalculateFare: %v", err)
	}
	return est
}

func TestSubmitBookingCreatesPendingBooking(t *testing.T) {
	f := newBookingFixture(t)
	est := f.quote(t, "s1")
	if est.Fare != 88.5 {
		t.Fatalf("fare = %v, want 88.5", est.Fare)
	}

	res, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
	if res.Redirect != "/booking/"+res.ID {
		t.Errorf("redirect = %q", res.Redirect)
	}

	b, err := f.bookings.GetBookingByID(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("booking not stored: %v", err)
	}
	if b.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	if b.Email != "ada@example.com" || b.UserID != "u1" {
		t.Errorf("email/user = %q/%q", b.Email, b.UserID)
	}
	if b.Fare != 88.5 || b.DepositAmount+b.BalanceDue != b.Fare {
		t.Errorf("fare %v split into %v + %v", b.Fare, b.DepositAmount, b.BalanceDue)
	}
	if b.PaymentURL == "" || res.PaymentURL != b.PaymentURL {
		t.Errorf("payment url not attached: %q / %q", b.PaymentURL, res.PaymentURL)
	}
	if f.quotes.has("s1") {
		t.Error("quote should be cleared after booking")
	}

	f.svc.Wait()
	if got := f.notifier.types(); len(got) != 1 || got[0] != notify.EventBookingCreated {
		t.Errorf("events = %v", got)
	}
}

func TestSubmitBookingSplitsDeposit(t *testing.T) {
	f := newBookingFixture(t)
	f.settings.settings = &models.Settings{
		BaseFare:       150,
		DepositPercent: 50,
		BufferMinutes:  60,
	}
	est := f.quote(t, "s1")
	if est.Fare != 150 {
		t.Fatalf("fare = %v, want 150", est.Fare)
	}

	res, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
	if res.Booking.DepositAmount != 75 || res.Booking.BalanceDue != 75 {
		t.Errorf("deposit/balance = %v/%v, want 75/75", res.Booking.DepositAmount, res.Booking.BalanceDue)
	}
	if got := f.gateway.requests[0].AmountCents; got != 7500 {
		t.Errorf("checkout amount = %d cents, want 7500", got)
	}
}

func TestSubmitBookingRequiresQuote(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != MsgCalculateFirst {
		t.Errorf("message = %q", err.Error())
	}
	if f.bookings.writes() != 0 {
		t.Error("nothing should be written")
	}
}

func TestSubmitBookingMissingFields(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")

	form := validForm(fixedNow.Add(72 * time.Hour))
	form.CustomerName = "  "
	form.Phone = ""

	_, err := f.svc.SubmitBooking(context.Background(), "s1", form, SubmitOptions{})
	missing := domain.MissingFields(err)
	if len(missing) != 2 || missing[0] != "customer_name" || missing[1] != "phone" {
		t.Fatalf("missing = %v (err %v)", missing, err)
	}
	if f.bookings.writes() != 0 {
		t.Error("nothing should be written")
	}
	if !f.quotes.has("s1") {
		t.Error("quote should survive a rejected submission")
	}
}

func TestSubmitBookingRejectsPastPickup(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")

	_, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(-time.Hour)), SubmitOptions{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.bookings.writes() != 0 {
		t.Error("nothing should be written")
	}
}

func TestSubmitBookingRejectsChangedRoute(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")

	form := validForm(fixedNow.Add(72 * time.Hour))
	form.Dropoff = "Brooklyn Bridge"
	_, err := f.svc.SubmitBooking(context.Background(), "s1", form, SubmitOptions{})
	if err == nil || err.Error() != MsgRouteChanged {
		t.Fatalf("err = %v, want %q", err, MsgRouteChanged)
	}
}

func TestSubmitBookingSlotConflict(t *testing.T) {
	f := newBookingFixture(t)
	pickup := fixedNow.Add(72 * time.Hour)
	f.bookings.put(&models.Booking{ID: "existing", Status: models.StatusConfirmed, PickupTime: pickup.Add(30 * time.Minute)})
	f.quote(t, "s1")

	_, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(pickup), SubmitOptions{})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err.Error() != MsgSlotTaken {
		t.Errorf("message = %q", err.Error())
	}
	if f.bookings.creates != 0 {
		t.Error("no booking should be created")
	}
}

func TestSubmitBookingIgnoresCancelledBookings(t *testing.T) {
	f := newBookingFixture(t)
	pickup := fixedNow.Add(72 * time.Hour)
	f.bookings.put(&models.Booking{ID: "gone", Status: models.StatusCancelled, PickupTime: pickup})
	f.quote(t, "s1")

	if _, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(pickup), SubmitOptions{}); err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
}

func TestSubmitBookingBufferBoundaryIsFree(t *testing.T) {
	f := newBookingFixture(t)
	pickup := fixedNow.Add(72 * time.Hour)
	// exactly one buffer (60 minutes) away
	f.bookings.put(&models.Booking{ID: "other", Status: models.StatusPending, PickupTime: pickup.Add(time.Hour)})
	f.quote(t, "s1")

	if _, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(pickup), SubmitOptions{}); err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
}

func TestNotifierFailureDoesNotFailBooking(t *testing.T) {
	f := newBookingFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.quote(t, "s1")

	res, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
	f.svc.Wait()
	if _, err := f.bookings.GetBookingByID(context.Background(), res.ID); err != nil {
		t.Errorf("booking should persist: %v", err)
	}
}

func TestPaymentLinkFailureDoesNotFailBooking(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.err = errors.New("stripe down")
	f.quote(t, "s1")

	res, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}
	if res.PaymentURL != "" {
		t.Errorf("payment url = %q, want empty", res.PaymentURL)
	}
}

func TestSubmitBookingStoreFailure(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.createErr = errStore
	f.quote(t, "s1")

	_, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if !domain.IsUpstream(err) || err.Error() != MsgSaveFailed {
		t.Fatalf("err = %v", err)
	}
	if !f.quotes.has("s1") {
		t.Error("quote should be kept so the customer can retry")
	}
}

func TestConcurrentSubmissionsForSameSlot(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")
	f.quote(t, "s2")

	// both availability reads happen before either insert
	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	f.bookings.readBarrier = barrier

	pickup := fixedNow.Add(72 * time.Hour)
	var wg sync.WaitGroup
	results := make([]*BookingResult, 2)
	errs := make([]error, 2)
	for i, session := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			results[i], errs[i] = f.svc.SubmitBooking(context.Background(), session, validForm(pickup), SubmitOptions{})
		}(i, session)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
	}
	if results[0].ID == results[1].ID {
		t.Fatal("submissions must create independent bookings")
	}
	if f.bookings.creates != 2 {
		t.Errorf("creates = %d, want 2", f.bookings.creates)
	}
}

func TestCalculateFareEmptyOrigin(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")

	_, err := f.svc.CalculateFare(context.Background(), "s1", "   ", "Times Square")
	if !domain.IsValidation(err) || err.Error() != MsgFareFailed {
		t.Fatalf("err = %v", err)
	}
	if f.quotes.has("s1") {
		t.Error("a failed calculation must clear the stored quote")
	}
}

func TestCalculateFareProviderFailureClearsQuote(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")
	f.routes.err = geo.ErrNoRoute

	_, err := f.svc.CalculateFare(context.Background(), "s1", "JFK Airport", "Nowhere")
	if !domain.IsUpstream(err) || err.Error() != MsgFareFailed {
		t.Fatalf("err = %v", err)
	}
	if f.quotes.has("s1") {
		t.Error("a failed calculation must clear the stored quote")
	}

	_, err = f.svc.SubmitBooking(context.Background(), "s1", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{})
	if err == nil || err.Error() != MsgCalculateFirst {
		t.Errorf("submit after failed fare: %v", err)
	}
}

func TestEditBookingReusesStoredFare(t *testing.T) {
	f := newBookingFixture(t)
	f.quote(t, "s1")
	pickup := fixedNow.Add(72 * time.Hour)
	res, err := f.svc.SubmitBooking(context.Background(), "s1", validForm(pickup), SubmitOptions{})
	if err != nil {
		t.Fatalf("SubmitBooking: %v", err)
	}

	view, err := f.svc.EditForm(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("EditForm: %v", err)
	}
	if view.Form.Pickup != "JFK Airport" || view.Fare != 88.5 {
		t.Fatalf("edit form = %+v", view)
	}

	form := view.Form
	form.Passengers = 4
	form.PickupTime = pickup.Add(30 * time.Minute).Format(time.RFC3339)
	edited, err := f.svc.SubmitBooking(context.Background(), "s2", form, SubmitOptions{EditID: res.ID})
	if err != nil {
		t.Fatalf("edit submit: %v", err)
	}
	if edited.ID != res.ID || f.bookings.creates != 1 {
		t.Fatalf("edit must update in place (creates = %d)", f.bookings.creates)
	}
	if edited.Booking.Passengers != 4 || edited.Booking.Fare != 88.5 {
		t.Errorf("edited booking = %+v", edited.Booking)
	}

	f.svc.Wait()
	types := f.notifier.types()
	if types[len(types)-1] != notify.EventBookingUpdated {
		t.Errorf("last event = %s", types[len(types)-1])
	}
}

func TestEditBookingRequiresPending(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.put(&models.Booking{
		ID: "b1", Status: models.StatusConfirmed, Pickup: "JFK Airport", Dropoff: "Times Square",
		PickupTime: fixedNow.Add(72 * time.Hour), Fare: 88.5,
	})

	_, err := f.svc.SubmitBooking(context.Background(), "", validForm(fixedNow.Add(72*time.Hour)), SubmitOptions{EditID: "b1"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCancelBookingRefundTiers(t *testing.T) {
	tests := []struct {
		name   string
		notice time.Duration
		paid   bool
		want   float64
	}{
		{"more than 48 hours", 72 * time.Hour, true, 75},
		{"within 48 hours", 36 * time.Hour, true, 37.5},
		{"within 24 hours", 12 * time.Hour, true, 0},
		{"deposit not paid", 72 * time.Hour, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			f.bookings.put(&models.Booking{
				ID: "b1", Status: models.StatusConfirmed, PickupTime: fixedNow.Add(tt.notice),
				Fare: 150, DepositAmount: 75, BalanceDue: 75, DepositPaid: tt.paid,
			})

			b, err := f.svc.CancelBooking(context.Background(), "b1")
			if err != nil {
				t.Fatalf("CancelBooking: %v", err)
			}
			if b.Status != models.StatusCancelled || b.CancelledAt == nil {
				t.Errorf("booking not cancelled: %+v", b)
			}
			if b.RefundAmount != tt.want {
				t.Errorf("refund = %v, want %v", b.RefundAmount, tt.want)
			}
		})
	}
}

func TestCancelCompletedBookingConflicts(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusCompleted, PickupTime: fixedNow.Add(-time.Hour)})

	if _, err := f.svc.CancelBooking(context.Background(), "b1"); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMarkDepositPaidConfirmsOnce(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusPending, PickupTime: fixedNow.Add(72 * time.Hour), DepositAmount: 75})

	b, err := f.svc.MarkDepositPaid(context.Background(), "b1", "cs_1")
	if err != nil {
		t.Fatalf("MarkDepositPaid: %v", err)
	}
	if !b.DepositPaid || b.Status != models.StatusConfirmed {
		t.Errorf("booking = %+v", b)
	}
	if _, err := f.svc.MarkDepositPaid(context.Background(), "b1", "cs_1"); err != nil {
		t.Fatalf("second MarkDepositPaid: %v", err)
	}

	f.svc.Wait()
	confirmed := 0
	for _, typ := range f.notifier.types() {
		if typ == notify.EventBookingConfirmed {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Errorf("confirmed events = %d, want 1", confirmed)
	}
}

func TestDepositPaidAfterCancelIsOwedBack(t *testing.T) {
	f := newBookingFixture(t)
	f.bookings.put(&models.Booking{
		ID: "b1", Status: models.StatusPending, PickupTime: fixedNow.Add(72 * time.Hour),
		Fare: 150, DepositAmount: 75, BalanceDue: 75,
	})
	ctx := context.Background()

	cancelled, err := f.svc.CancelBooking(ctx, "b1")
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.RefundAmount != 0 {
		t.Fatalf("unpaid cancel refund = %v", cancelled.RefundAmount)
	}

	b, err := f.svc.MarkDepositPaid(ctx, "b1", "cs_1")
	if err != nil {
		t.Fatalf("MarkDepositPaid: %v", err)
	}
	if b.Status != models.StatusCancelled {
		t.Errorf("status = %s, a cancelled booking must stay cancelled", b.Status)
	}
	if !b.DepositPaid || b.RefundAmount != 75 {
		t.Errorf("paid = %v refund = %v, want paid with full refund", b.DepositPaid, b.RefundAmount)
	}

	f.svc.Wait()
	for _, typ := range f.notifier.types() {
		if typ == notify.EventBookingConfirmed {
			t.Error("a cancelled booking must not be confirmed")
		}
	}
}

func TestGetBookingNotFound(t *testing.T) {
	f := newBookingFixture(t)
	if _, err := f.svc.GetBooking(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCanAccessAndManage(t *testing.T) {
	b := &models.Booking{ID: "b1", UserID: "u1", Email: "ada@example.com"}
	guestBooking := &models.Booking{ID: "b2", Email: "ada@example.com"}
	tests := []struct {
		name       string
		booking    *models.Booking
		session    *helpers.SessionState
		email      string
		wantView   bool
		wantManage bool
	}{
		{"owner", b, &helpers.SessionState{UserID: "u1"}, "", true, true},
		{"admin", b, &helpers.SessionState{UserID: "x", IsAdmin: true}, "", true, true},
		{"matching email only", b, nil, " ADA@example.com ", true, false},
		{"signed in with booking email", b, &helpers.SessionState{UserID: "u2", Email: "Ada@Example.com"}, "", true, true},
		{"other user", b, &helpers.SessionState{UserID: "u2"}, "", false, false},
		{"other user presenting email", b, &helpers.SessionState{UserID: "u2", Email: "bob@example.com"}, "ada@example.com", true, false},
		{"guest", b, &helpers.SessionState{}, "", false, false},
		{"guest session on guest booking", guestBooking, &helpers.SessionState{}, "", false, false},
		{"guest email on guest booking", guestBooking, &helpers.SessionState{}, "ada@example.com", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.booking, tt.session, tt.email); got != tt.wantView {
				t.Errorf("CanAccess = %v, want %v", got, tt.wantView)
			}
			if got := CanManage(tt.booking, tt.session); got != tt.wantManage {
				t.Errorf("CanManage = %v, want %v", got, tt.wantManage)
			}
		})
	}
}

func TestParsePickupTime(t *testing.T) {
	for _, raw := range []string{"2026-03-04T09:30:00Z", "2026-03-04T09:30:00", "2026-03-04T09:30"} {
		got, err := parsePickupTime(raw)
		if err != nil {
			t.Fatalf("parsePickupTime(%q): %v", raw, err)
		}
		if !got.Equal(time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)) {
			t.Errorf("parsePickupTime(%q) = %v", raw, got)
		}
	}
	if _, err := parsePickupTime("tomorrow"); err == nil {
		t.Error("expected error for free text")
	}
}
