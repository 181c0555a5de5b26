package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/airportcar/internal/geo"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
	"github.com/joshua-takyi/airportcar/internal/payments"
)

var errStore = errors.New("store unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBookingRepo is an in-memory BookingRepo. When readBarrier is set,
// FindActiveInWindow waits until every expected reader has arrived.
type fakeBookingRepo struct {
	mu          sync.Mutex
	bookings    map[string]*models.Booking
	creates     int
	updates     int
	createErr   error
	readBarrier *sync.WaitGroup
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*models.Booking{}}
}

func (r *fakeBookingRepo) put(b *models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
}

func (r *fakeBookingRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates + r.updates
}

func (r *fakeBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.creates++
	cp := *b
	r.bookings[b.ID] = &cp
	return b, nil
}

func (r *fakeBookingRepo) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) UpdateBooking(ctx context.Context, id string, fields map[string]interface{}) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.ErrBookingNotFound
	}
	r.updates++

	// apply the $set through the document's JSON/BSON field names
	raw, _ := json.Marshal(b)
	var doc map[string]interface{}
	_ = json.Unmarshal(raw, &doc)
	for k, v := range fields {
		doc[k] = v
	}
	raw, _ = json.Marshal(doc)
	updated := &models.Booking{}
	if err := json.Unmarshal(raw, updated); err != nil {
		return nil, err
	}
	if v, ok := fields["payment_session_id"].(string); ok {
		updated.PaymentSessionID = v
	} else {
		updated.PaymentSessionID = b.PaymentSessionID
	}
	r.bookings[id] = updated
	cp := *updated
	return &cp, nil
}

func (r *fakeBookingRepo) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.UserID != "" || filter.Email != "" {
			if b.UserID != filter.UserID && b.Email != filter.Email {
				continue
			}
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupTime.After(out[j].PickupTime) })
	total := int64(len(out))
	if filter.Limit > 0 {
		end := filter.Offset + filter.Limit
		if filter.Offset > len(out) {
			filter.Offset = len(out)
		}
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, total, nil
}

func (r *fakeBookingRepo) FindActiveInWindow(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	if r.readBarrier != nil {
		r.readBarrier.Done()
		r.readBarrier.Wait()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		if b.PickupTime.After(from) && b.PickupTime.Before(to) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) DeleteBooking(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return models.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeBookingRepo) BookingStats(ctx context.Context, now time.Time) (*models.BookingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.BookingStats{ByStatus: map[string]int64{}}
	for _, b := range r.bookings {
		stats.ByStatus[string(b.Status)]++
		stats.TotalBookings++
		if b.Status == models.StatusCompleted {
			stats.CompletedRevenue += b.Fare
		}
	}
	return stats, nil
}

type fakeQuoteRepo struct {
	mu     sync.Mutex
	quotes map[string]*models.FareQuote
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{quotes: map[string]*models.FareQuote{}}
}

func (r *fakeQuoteRepo) SaveQuote(ctx context.Context, q *models.FareQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	r.quotes[q.SessionID] = &cp
	return nil
}

func (r *fakeQuoteRepo) GetQuote(ctx context.Context, sessionID string) (*models.FareQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[sessionID]
	if !ok {
		return nil, models.ErrQuoteNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *fakeQuoteRepo) DeleteQuote(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.quotes, sessionID)
	return nil
}

func (r *fakeQuoteRepo) has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.quotes[sessionID]
	return ok
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *models.Settings
	getErr   error
}

func (r *fakeSettingsRepo) GetSettings(ctx context.Context) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.settings == nil {
		return nil, models.ErrSettingsNotFound
	}
	cp := *r.settings
	return &cp, nil
}

func (r *fakeSettingsRepo) SaveSettings(ctx context.Context, s *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings = &cp
	return nil
}

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]*models.Driver
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{drivers: map[string]*models.Driver{}}
}

func (r *fakeDriverRepo) CreateDriver(ctx context.Context, d *models.Driver) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drivers[d.ID] = &cp
	return d, nil
}

func (r *fakeDriverRepo) GetDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return nil, models.ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDriverRepo) ListDrivers(ctx context.Context, status models.DriverStatus) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Driver{}
	for _, d := range r.drivers {
		if status == "" || d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDriverRepo) UpdateDriver(ctx context.Context, id string, fields map[string]interface{}) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return nil, models.ErrDriverNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			d.Status = v.(models.DriverStatus)
		case "name":
			d.Name = v.(string)
		case "phone":
			d.Phone = v.(string)
		case "email":
			d.Email = v.(string)
		case "vehicle.plate":
			d.Vehicle.Plate = v.(string)
		case "vehicle.year":
			d.Vehicle.Year = v.(int)
		}
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDriverRepo) DeleteDriver(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drivers[id]; !ok {
		return models.ErrDriverNotFound
	}
	delete(r.drivers, id)
	return nil
}

func (r *fakeDriverRepo) IncrementRides(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return models.ErrDriverNotFound
	}
	d.TotalRides++
	return nil
}

func (r *fakeDriverRepo) AddRating(ctx context.Context, id string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return models.ErrDriverNotFound
	}
	d.Rating = (d.Rating*float64(d.RatingCount) + float64(rating)) / float64(d.RatingCount+1)
	d.RatingCount++
	return nil
}

func (r *fakeDriverRepo) DriverStatusCounts(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, d := range r.drivers {
		counts[string(d.Status)]++
	}
	return counts, nil
}

type fakeFeedbackRepo struct {
	mu    sync.Mutex
	items []*models.Feedback
}

func (r *fakeFeedbackRepo) CreateFeedback(ctx context.Context, f *models.Feedback) (*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.BookingID == f.BookingID {
			return nil, models.ErrDuplicateFeedback
		}
	}
	f.BeforeCreate()
	r.items = append(r.items, f)
	return f, nil
}

func (r *fakeFeedbackRepo) ListFeedback(ctx context.Context, limit int) ([]*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Feedback(nil), r.items...), nil
}

// fakeCMSRepo keeps the CMS document as JSON-shaped maps. Field names are
// the same in JSON and BSON, so paths behave as they do in MongoDB.
type fakeCMSRepo struct {
	mu       sync.Mutex
	doc      map[string]interface{}
	gets     int
	sets     int
	writeErr error
}

func newFakeCMSRepo() *fakeCMSRepo {
	return &fakeCMSRepo{doc: map[string]interface{}{}}
}

func (r *fakeCMSRepo) GetSection(ctx context.Context, path string, out interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	var cur interface{} = r.doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return false, nil
		}
		if cur, ok = m[seg]; !ok || cur == nil {
			return false, nil
		}
	}
	raw, err := json.Marshal(cur)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, out)
}

func (r *fakeCMSRepo) SetSection(ctx context.Context, path string, value interface{}) error {
	return r.MergeFields(ctx, map[string]interface{}{path: value})
}

func (r *fakeCMSRepo) MergeFields(ctx context.Context, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.sets++
	for path, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var normalized interface{}
		if err := json.Unmarshal(raw, &normalized); err != nil {
			return err
		}
		segs := strings.Split(path, ".")
		cur := r.doc
		for _, seg := range segs[:len(segs)-1] {
			next, ok := cur[seg].(map[string]interface{})
			if !ok {
				next = map[string]interface{}{}
				cur[seg] = next
			}
			cur = next
		}
		cur[segs[len(segs)-1]] = normalized
	}
	return nil
}

func (r *fakeCMSRepo) setCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets
}

type fakeRoutes struct {
	route *geo.Route
	err   error
	calls int
}

func (f *fakeRoutes) Route(ctx context.Context, origin, destination string) (*geo.Route, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func (f *fakeRoutes) Autocomplete(ctx context.Context, input string) ([]geo.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []geo.Prediction{{Description: input + " Airport", PlaceID: "p1"}}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.BookingEvent
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, e notify.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payments.DepositRequest
	err      error
}

func (g *fakeGateway) CreateDepositLink(ctx context.Context, req payments.DepositRequest) (*payments.CheckoutLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payments.CheckoutLink{SessionID: "cs_" + req.BookingID, URL: "https://pay.example/" + req.BookingID}, nil
}
