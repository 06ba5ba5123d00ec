package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/handlers"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/platform/auth"
	"github.com/trailborn/tours-api/internal/platform/payments"
)

// ---------- Mocks ----------

type mockBookingRepo struct {
	bookings map[int64]*domain.Booking
	nextID   int64
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: map[int64]*domain.Booking{}, nextID: 1}
}

func (m *mockBookingRepo) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	cp := *b
	cp.ID = m.nextID
	m.nextID++
	m.bookings[cp.ID] = &cp
	return &cp, nil
}

func (m *mockBookingRepo) FindByID(_ context.Context, id int64) (*domain.Booking, error) {
	return m.bookings[id], nil
}

func (m *mockBookingRepo) Find(_ context.Context, _ request.ListOptions) ([]domain.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepo) UpdateByID(_ context.Context, id int64, _ *domain.BookingPatch) (*domain.Booking, error) {
	return m.bookings[id], nil
}

func (m *mockBookingRepo) DeleteByID(_ context.Context, id int64) error {
	delete(m.bookings, id)
	return nil
}

func (m *mockBookingRepo) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.Booking, error) {
	for _, b := range m.bookings {
		if b.SessionID == sessionID {
			return b, nil
		}
	}
	return nil, nil
}

type mockTourRepo struct {
	tours    map[int64]*domain.Tour
	stats    []domain.TourStats
	plan     []domain.MonthlyPlan
	planYear int
}

func (m *mockTourRepo) Create(_ context.Context, t *domain.Tour) (*domain.Tour, error) {
	return t, nil
}
func (m *mockTourRepo) FindByID(_ context.Context, id int64) (*domain.Tour, error) {
	return m.tours[id], nil
}
func (m *mockTourRepo) Find(_ context.Context, _ request.ListOptions) ([]domain.Tour, error) {
	return nil, nil
}
func (m *mockTourRepo) UpdateByID(_ context.Context, id int64, _ *domain.TourPatch) (*domain.Tour, error) {
	return m.tours[id], nil
}
func (m *mockTourRepo) DeleteByID(_ context.Context, _ int64) error { return nil }
func (m *mockTourRepo) FindBySlug(_ context.Context, slug string) (*domain.Tour, error) {
	for _, t := range m.tours {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, nil
}
func (m *mockTourRepo) Stats(_ context.Context) ([]domain.TourStats, error) { return m.stats, nil }

func (m *mockTourRepo) MonthlyPlan(_ context.Context, year int) ([]domain.MonthlyPlan, error) {
	m.planYear = year
	return m.plan, nil
}

type mockGateway struct {
	session    *payments.Session
	sessionErr error
	result     *payments.CheckoutResult
	parseErr   error
	lastTour   *domain.Tour
}

func (g *mockGateway) CreateCheckoutSession(_ context.Context, tour *domain.Tour, _ *domain.User, _, _ string) (*payments.Session, error) {
	g.lastTour = tour
	return g.session, g.sessionErr
}

func (g *mockGateway) ParseWebhook(_ []byte, _ string) (*payments.CheckoutResult, error) {
	return g.result, g.parseErr
}

// ---------- Fixture ----------

type bookingFixture struct {
	*fixture
	bookings *mockBookingRepo
	gateway  *mockGateway
}

func newBookingFixture() *bookingFixture {
	repo := newMockUserRepo()
	mail := &mockMailer{}
	cfg := testConfig()
	bookings := newMockBookingRepo()
	gateway := &mockGateway{}
	tours := &mockTourRepo{tours: map[int64]*domain.Tour{
		7: {ID: 7, Name: "The Forest Hiker", Slug: "the-forest-hiker", Price: 397},
	}}

	api := &handlers.API{
		Auth:     handlers.NewAuthHandler(repo, mail, nil, cfg),
		Users:    handlers.NewUsersHandler(repo),
		Bookings: handlers.NewBookingsHandler(bookings, tours, gateway, nil, cfg),
		Session:  middleware.NewSession(cfg.Auth.JWTSecret, repo),
	}

	r := chi.NewRouter()
	r.Mount("/", api.Routes())

	return &bookingFixture{
		fixture:  &fixture{repo: repo, mail: mail, cfg: cfg, router: r},
		bookings: bookings,
		gateway:  gateway,
	}
}

// ---------- Tests ----------

func TestCheckoutSession(t *testing.T) {
	f := newBookingFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	f.gateway.session = &payments.Session{ID: "cs_123", URL: "https://pay.example.com/cs_123"}

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/checkout-session/7", "",
		map[string]string{"Authorization": "Bearer " + token})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cs_123") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if f.gateway.lastTour == nil || f.gateway.lastTour.ID != 7 {
		t.Errorf("gateway got tour %+v", f.gateway.lastTour)
	}
}

func TestCheckoutSessionUnknownTour(t *testing.T) {
	f := newBookingFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/checkout-session/999", "",
		map[string]string{"Authorization": "Bearer " + token})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCheckoutSessionRequiresLogin(t *testing.T) {
	f := newBookingFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/checkout-session/7", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookCreatesPaidBooking(t *testing.T) {
	f := newBookingFixture()
	f.gateway.result = &payments.CheckoutResult{TourID: 7, UserID: 3, Price: 397, SessionID: "cs_123"}

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/webhook", `{}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.bookings.bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(f.bookings.bookings))
	}
	b := f.bookings.bookings[1]
	if !b.Paid || b.TourID != 7 || b.UserID != 3 || b.Price != 397 {
		t.Errorf("booking = %+v", b)
	}
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	f := newBookingFixture()
	f.gateway.result = &payments.CheckoutResult{TourID: 7, UserID: 3, Price: 397, SessionID: "cs_123"}

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/bookings/webhook", `{}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d on delivery %d", rec.Code, i+1)
		}
	}
	if len(f.bookings.bookings) != 1 {
		t.Fatalf("bookings = %d, want 1 after redelivery", len(f.bookings.bookings))
	}
}

func TestWebhookBadSignature(t *testing.T) {
	f := newBookingFixture()
	f.gateway.parseErr = errors.New("verify webhook signature: bad signature")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/webhook", `{}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.bookings.bookings) != 0 {
		t.Error("no booking should be created")
	}
}

func TestWebhookIgnoredEvent(t *testing.T) {
	f := newBookingFixture()
	// Gateway returns (nil, nil) for event types we do not handle.

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/webhook", `{}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(f.bookings.bookings) != 0 {
		t.Error("no booking should be created for ignored events")
	}
}

func TestMyBookings(t *testing.T) {
	f := newBookingFixture()
	u := f.addUser(t, "leo@example.com", "pass1234")
	token, err := auth.Issue(u.ID, u.Email, u.Role, f.cfg.Auth.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	f.bookings.Create(context.Background(), &domain.Booking{TourID: 7, UserID: u.ID, Price: 397, Paid: true})
	f.bookings.Create(context.Background(), &domain.Booking{TourID: 7, UserID: 999, Price: 397, Paid: true})

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/my-bookings", "",
		map[string]string{"Authorization": "Bearer " + token})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"results":1`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
