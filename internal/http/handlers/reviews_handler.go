package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/ratings"
)

type ReviewsHandler struct {
	Reviews *ratings.Store
}

func NewReviewsHandler(reviews *ratings.Store) *ReviewsHandler {
	return &ReviewsHandler{Reviews: reviews}
}

// tourParam reads the tour identifier from the nested route, where the
// {id} parameter names the tour rather than the review.
func tourParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// prepCreate fills in what the body may omit on the nested route: the
// tour from the URL and the author from the session.
func prepCreate(r *http.Request, rv *domain.Review) error {
	if raw := tourParam(r); raw != "" {
		tourID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Invalid("invalid tour ID")
		}
		rv.TourID = tourID
	}
	if u := middleware.CurrentUser(r); u != nil && rv.UserID == 0 {
		rv.UserID = u.ID
	}
	return nil
}

// scopeToTour narrows a listing to the tour in the URL, if any.
func scopeToTour(r *http.Request, opts *request.ListOptions) {
	if raw := tourParam(r); raw != "" {
		opts.Filters = append(opts.Filters, request.Filter{Field: "tour", Value: raw})
	}
}
