package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/response"
	"github.com/trailborn/tours-api/internal/platform/payments"
	"github.com/trailborn/tours-api/internal/repo/postgres"
	"github.com/trailborn/tours-api/pkg/config"
	"github.com/trailborn/tours-api/pkg/events"
	"github.com/trailborn/tours-api/pkg/logger"
)

const maxWebhookBody = 1 << 16

type BookingsHandler struct {
	Bookings postgres.BookingRepository
	Tours    postgres.TourRepository
	Gateway  payments.Gateway
	Bus      events.Publisher
	Cfg      *config.Config
}

func NewBookingsHandler(bookings postgres.BookingRepository, tours postgres.TourRepository, gateway payments.Gateway, bus events.Publisher, cfg *config.Config) *BookingsHandler {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &BookingsHandler{Bookings: bookings, Tours: tours, Gateway: gateway, Bus: bus, Cfg: cfg}
}

// checkoutSession starts a payment for the tour in the URL on behalf of
// the logged-in user and returns the redirect session.
func (h *BookingsHandler) checkoutSession(w http.ResponseWriter, r *http.Request) {
	tourID, err := strconv.ParseInt(chi.URLParam(r, "tourID"), 10, 64)
	if err != nil || tourID <= 0 {
		response.BadRequest(w, "invalid tour ID")
		return
	}

	tour, err := h.Tours.FindByID(r.Context(), tourID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if tour == nil {
		response.NotFound(w, "no tour found with that ID")
		return
	}

	user := middleware.CurrentUser(r)
	successURL := h.Cfg.App.BaseURL + "/my-bookings?alert=booking"
	cancelURL := h.Cfg.App.BaseURL + "/tours/" + tour.Slug

	session, err := h.Gateway.CreateCheckoutSession(r.Context(), tour, user, successURL, cancelURL)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create checkout session",
			"tour_id", tour.ID, "user_id", user.ID, "error", err)
		response.InternalError(w, "could not start checkout, try again later")
		return
	}

	response.JSON(w, http.StatusOK, session)
}

// webhook records a paid booking when the payment provider confirms a
// completed checkout. The signature is checked before anything else.
func (h *BookingsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "could not read payload")
		return
	}

	result, err := h.Gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		response.BadRequest(w, "invalid webhook signature")
		return
	}
	if result == nil {
		// Event type we do not handle.
		response.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	// Redelivered webhooks must not produce duplicate bookings.
	if existing, err := h.Bookings.FindBySessionID(r.Context(), result.SessionID); err != nil {
		response.Error(w, err)
		return
	} else if existing != nil {
		response.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	booking, err := h.Bookings.Create(r.Context(), &domain.Booking{
		TourID:    result.TourID,
		UserID:    result.UserID,
		Price:     result.Price,
		Paid:      true,
		SessionID: result.SessionID,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.Bus.Publish(r.Context(), events.BookingCreated, events.BookingCreatedEvent{
		BookingID: booking.ID,
		TourID:    booking.TourID,
		UserID:    booking.UserID,
		Price:     booking.Price,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to publish booking event", "error", err)
	}

	response.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// myBookings lists the logged-in user's bookings.
func (h *BookingsHandler) myBookings(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	bookings, err := h.Bookings.ListByUser(r.Context(), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.List(w, http.StatusOK, len(bookings), bookings)
}
