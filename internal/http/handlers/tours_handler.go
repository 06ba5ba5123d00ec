package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/http/response"
	"github.com/trailborn/tours-api/internal/repo/postgres"
)

type ToursHandler struct {
	Tours postgres.TourRepository
}

func NewToursHandler(tours postgres.TourRepository) *ToursHandler {
	return &ToursHandler{Tours: tours}
}

// topCheap presets the listing to the five best-rated, cheapest tours.
// Client query parameters cannot override the preset.
func topCheap(_ *http.Request, opts *request.ListOptions) {
	opts.Limit = 5
	opts.Page = 1
	opts.Sort = []request.SortField{
		{Field: "ratingsAverage", Desc: true},
		{Field: "price"},
	}
}

func (h *ToursHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Tours.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.List(w, http.StatusOK, len(stats), stats)
}

func (h *ToursHandler) monthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		response.BadRequest(w, "invalid year")
		return
	}

	plan, err := h.Tours.MonthlyPlan(r.Context(), year)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.List(w, http.StatusOK, len(plan), plan)
}
