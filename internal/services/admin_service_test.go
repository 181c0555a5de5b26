package services

import (
	"context"
	"testing"
	"time"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
)

type adminFixture struct {
	*bookingFixture
	admin    *AdminService
	drivers  *fakeDriverRepo
	feedback *fakeFeedbackRepo
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	bf := newBookingFixture(t)
	f := &adminFixture{
		bookingFixture: bf,
		drivers:        newFakeDriverRepo(),
		feedback:       &fakeFeedbackRepo{},
	}
	f.admin = NewAdminService(bf.bookings, f.drivers, f.feedback, bf.svc, testLogger())
	return f
}

func TestUpdateBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from    models.BookingStatus
		to      string
		allowed bool
	}{
		{models.StatusPending, "confirmed", true},
		{models.StatusPending, "in-progress", false},
		{models.StatusConfirmed, "in-progress", true},
		{models.StatusInProgress, "completed", true},
		{models.StatusInProgress, "cancelled", false},
		{models.StatusCompleted, "pending", false},
		{models.StatusCancelled, "confirmed", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			f := newAdminFixture(t)
			f.bookings.put(&models.Booking{ID: "b1", Status: tt.from, PickupTime: fixedNow.Add(time.Hour)})

			b, err := f.admin.UpdateBookingStatus(context.Background(), "b1", tt.to)
			if tt.allowed {
				if err != nil {
					t.Fatalf("UpdateBookingStatus: %v", err)
				}
				if string(b.Status) != tt.to {
					t.Errorf("status = %s", b.Status)
				}
				return
			}
			if !domain.IsConflict(err) {
				t.Fatalf("expected conflict, got %v", err)
			}
		})
	}
}

func TestUpdateBookingStatusUnknown(t *testing.T) {
	f := newAdminFixture(t)
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusPending})
	if _, err := f.admin.UpdateBookingStatus(context.Background(), "b1", "lost"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBookingLifecycleKeepsDriverInStep(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.drivers.drivers["d1"] = &models.Driver{ID: "d1", Name: "Sam", Status: models.DriverAvailable}
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusConfirmed, PickupTime: fixedNow.Add(time.Hour)})

	if _, err := f.admin.AssignDriver(ctx, "b1", "d1"); err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}
	if _, err := f.admin.UpdateBookingStatus(ctx, "b1", "in-progress"); err != nil {
		t.Fatalf("in-progress: %v", err)
	}
	if d, _ := f.drivers.GetDriverByID(ctx, "d1"); d.Status != models.DriverBusy {
		t.Errorf("driver status = %s, want busy", d.Status)
	}

	if _, err := f.admin.UpdateBookingStatus(ctx, "b1", "completed"); err != nil {
		t.Fatalf("completed: %v", err)
	}
	d, _ := f.drivers.GetDriverByID(ctx, "d1")
	if d.Status != models.DriverAvailable || d.TotalRides != 1 {
		t.Errorf("driver = %+v", d)
	}
}

func TestAdminCancelSetsTimestampAndNotifies(t *testing.T) {
	f := newAdminFixture(t)
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusPending, PickupTime: fixedNow.Add(time.Hour)})

	b, err := f.admin.UpdateBookingStatus(context.Background(), "b1", "cancelled")
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if b.CancelledAt == nil {
		t.Error("cancelled_at not set")
	}
	f.svc.Wait()
	if got := f.notifier.types(); len(got) != 1 || got[0] != notify.EventBookingCancelled {
		t.Errorf("events = %v", got)
	}
}

func TestAdminCancelRecordsRefund(t *testing.T) {
	tests := []struct {
		name   string
		notice time.Duration
		paid   bool
		want   float64
	}{
		{"paid, early", 72 * time.Hour, true, 75},
		{"paid, within 48 hours", 36 * time.Hour, true, 37.5},
		{"paid, within 24 hours", time.Hour, true, 0},
		{"unpaid", 72 * time.Hour, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			f.bookings.put(&models.Booking{
				ID: "b1", Status: models.StatusConfirmed, PickupTime: fixedNow.Add(tt.notice),
				Fare: 150, DepositAmount: 75, BalanceDue: 75, DepositPaid: tt.paid,
			})

			b, err := f.admin.UpdateBookingStatus(context.Background(), "b1", "cancelled")
			if err != nil {
				t.Fatalf("UpdateBookingStatus: %v", err)
			}
			if b.RefundAmount != tt.want {
				t.Errorf("refund = %v, want %v", b.RefundAmount, tt.want)
			}
		})
	}
}

func TestAdminCancelSettingsFailure(t *testing.T) {
	f := newAdminFixture(t)
	f.settings.getErr = errStore
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusConfirmed, PickupTime: fixedNow.Add(72 * time.Hour), DepositPaid: true, DepositAmount: 75})

	if _, err := f.admin.UpdateBookingStatus(context.Background(), "b1", "cancelled"); err == nil {
		t.Fatal("expected an error")
	}
	if b, _ := f.bookings.GetBookingByID(context.Background(), "b1"); b.Status != models.StatusConfirmed {
		t.Errorf("status = %s, booking must be left untouched", b.Status)
	}
}

func TestAssignDriverRules(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.drivers.drivers["off"] = &models.Driver{ID: "off", Status: models.DriverOffline}
	f.bookings.put(&models.Booking{ID: "done", Status: models.StatusCompleted})
	f.bookings.put(&models.Booking{ID: "open", Status: models.StatusConfirmed})

	if _, err := f.admin.AssignDriver(ctx, "done", "off"); !domain.IsConflict(err) {
		t.Errorf("finished booking: %v", err)
	}
	if _, err := f.admin.AssignDriver(ctx, "open", "off"); !domain.IsConflict(err) {
		t.Errorf("offline driver: %v", err)
	}
	if _, err := f.admin.AssignDriver(ctx, "open", "ghost"); !domain.IsNotFound(err) {
		t.Errorf("unknown driver: %v", err)
	}
}

func TestUpdateBookingField(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.bookings.put(&models.Booking{ID: "b1", Status: models.StatusPending, Passengers: 1})

	b, err := f.admin.UpdateBookingField(ctx, "b1", "passengers", float64(3))
	if err != nil {
		t.Fatalf("UpdateBookingField: %v", err)
	}
	if b.Passengers != 3 {
		t.Errorf("passengers = %d", b.Passengers)
	}

	bad := []struct {
		field string
		value interface{}
	}{
		{"fare", float64(1)},
		{"passengers", float64(2.5)},
		{"passengers", float64(40)},
		{"email", "not-an-email"},
		{"customer_name", 12},
	}
	for _, tt := range bad {
		if _, err := f.admin.UpdateBookingField(ctx, "b1", tt.field, tt.value); !domain.IsValidation(err) {
			t.Errorf("%s=%v: expected validation error, got %v", tt.field, tt.value, err)
		}
	}
}

func TestAdminListBookings(t *testing.T) {
	f := newAdminFixture(t)
	for i, st := range []models.BookingStatus{models.StatusPending, models.StatusPending, models.StatusCompleted} {
		f.bookings.put(&models.Booking{ID: string(rune('a' + i)), Status: st, PickupTime: fixedNow.Add(time.Duration(i) * time.Hour)})
	}

	items, total, err := f.admin.ListBookings(context.Background(), "pending", 1, 10)
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("total = %d, items = %d", total, len(items))
	}
	if _, _, err := f.admin.ListBookings(context.Background(), "bogus", 1, 10); !domain.IsValidation(err) {
		t.Errorf("unknown status: %v", err)
	}
}

func TestAdminOverview(t *testing.T) {
	f := newAdminFixture(t)
	f.bookings.put(&models.Booking{ID: "a", Status: models.StatusCompleted, Fare: 100})
	f.drivers.drivers["d1"] = &models.Driver{ID: "d1", Status: models.DriverAvailable}

	o, err := f.admin.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.Bookings.CompletedRevenue != 100 || o.Drivers["available"] != 1 {
		t.Errorf("overview = %+v", o)
	}
}

func TestAdminDeleteBooking(t *testing.T) {
	f := newAdminFixture(t)
	f.bookings.put(&models.Booking{ID: "b1"})
	if err := f.admin.DeleteBooking(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if err := f.admin.DeleteBooking(context.Background(), "b1"); !domain.IsNotFound(err) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	svc := NewFeedbackService(f.feedback, f.drivers, f.svc, testLogger())
	f.drivers.drivers["d1"] = &models.Driver{ID: "d1", Status: models.DriverAvailable}
	f.bookings.put(&models.Booking{ID: "done", Status: models.StatusCompleted, DriverID: "d1"})
	f.bookings.put(&models.Booking{ID: "soon", Status: models.StatusConfirmed})

	fb, err := svc.SubmitFeedback(ctx, "done", 4, "  Great driver  ")
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if fb.Comment != "Great driver" {
		t.Errorf("comment = %q", fb.Comment)
	}
	if d, _ := f.drivers.GetDriverByID(ctx, "d1"); d.Rating != 4 || d.RatingCount != 1 {
		t.Errorf("driver rating = %v (%d)", d.Rating, d.RatingCount)
	}

	if _, err := svc.SubmitFeedback(ctx, "done", 5, ""); !domain.IsConflict(err) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := svc.SubmitFeedback(ctx, "soon", 5, ""); !domain.IsValidation(err) {
		t.Errorf("not completed: %v", err)
	}
	f.bookings.put(&models.Booking{ID: "done2", Status: models.StatusCompleted})
	if _, err := svc.SubmitFeedback(ctx, "done2", 6, ""); !domain.IsValidation(err) {
		t.Errorf("rating out of range: %v", err)
	}

	items, err := f.admin.ListFeedback(ctx, 0)
	if err != nil || len(items) != 1 {
		t.Errorf("ListFeedback = %d items, %v", len(items), err)
	}
}

func TestDriverService(t *testing.T) {
	repo := newFakeDriverRepo()
	svc := NewDriverService(repo, testLogger())
	ctx := context.Background()

	d, err := svc.CreateDriver(ctx, &models.Driver{
		Name:    " Sam Driver ",
		Phone:   "+1 555 0142",
		Vehicle: models.Vehicle{Make: "Toyota", Model: "Camry", Year: 2022, Plate: "abc 123"},
	})
	if err != nil {
		t.Fatalf("CreateDriver: %v", err)
	}
	if d.ID == "" || d.Status != models.DriverAvailable || d.Vehicle.Plate != "ABC 123" {
		t.Errorf("driver = %+v", d)
	}

	if _, err := svc.CreateDriver(ctx, &models.Driver{Name: "No Phone"}); !domain.IsValidation(err) {
		t.Errorf("invalid driver: %v", err)
	}

	updated, err := svc.UpdateDriverField(ctx, d.ID, "vehicle.year", float64(2024))
	if err != nil {
		t.Fatalf("UpdateDriverField: %v", err)
	}
	if updated.Vehicle.Year != 2024 {
		t.Errorf("year = %d", updated.Vehicle.Year)
	}
	if _, err := svc.UpdateDriverField(ctx, d.ID, "rating", float64(5)); !domain.IsValidation(err) {
		t.Errorf("rating must not be editable: %v", err)
	}

	if _, err := svc.UpdateDriverStatus(ctx, d.ID, "offline"); err != nil {
		t.Fatalf("UpdateDriverStatus: %v", err)
	}
	offline, _ := svc.ListDrivers(ctx, "offline")
	if len(offline) != 1 {
		t.Errorf("offline drivers = %d", len(offline))
	}
	if _, err := svc.UpdateDriverStatus(ctx, d.ID, "asleep"); !domain.IsValidation(err) {
		t.Errorf("unknown status: %v", err)
	}

	if err := svc.DeleteDriver(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDriver: %v", err)
	}
	if _, err := svc.GetDriver(ctx, d.ID); !domain.IsNotFound(err) {
		t.Errorf("deleted driver: %v", err)
	}
}
