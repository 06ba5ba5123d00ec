package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/repo/postgres"
	"github.com/trailborn/tours-api/pkg/logger"
	"github.com/trailborn/tours-api/web"
)

// ViewsHandler renders the server-side pages. Each page template is
// parsed against the base layout once at startup.
type ViewsHandler struct {
	Tours postgres.TourRepository
	pages map[string]*template.Template
}

func NewViewsHandler(tours postgres.TourRepository) (*ViewsHandler, error) {
	funcs := template.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"overview", "tour", "login", "error"} {
		t, err := template.New("base.html").Funcs(funcs).
			ParseFS(web.Templates, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return &ViewsHandler{Tours: tours, pages: pages}, nil
}

type viewData struct {
	User    *domain.User
	Tours   []domain.Tour
	Tour    *domain.Tour
	Message string
}

func (h *ViewsHandler) overview(w http.ResponseWriter, r *http.Request) {
	tours, err := h.Tours.Find(r.Context(), request.ListOptions{})
	if err != nil {
		h.renderError(w, r, "could not load tours")
		return
	}
	h.render(w, r, "overview", viewData{User: middleware.CurrentUser(r), Tours: tours})
}

func (h *ViewsHandler) tour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.Tours.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, "could not load that tour")
		return
	}
	if tour == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		h.renderPage(w, r, "error", viewData{
			User:    middleware.CurrentUser(r),
			Message: "there is no tour with that name",
		})
		return
	}
	h.render(w, r, "tour", viewData{User: middleware.CurrentUser(r), Tour: tour})
}

func (h *ViewsHandler) login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", viewData{User: middleware.CurrentUser(r)})
}

func (h *ViewsHandler) render(w http.ResponseWriter, r *http.Request, page string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.renderPage(w, r, page, data)
}

func (h *ViewsHandler) renderPage(w http.ResponseWriter, r *http.Request, page string, data viewData) {
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page", "page", page, "error", err)
	}
}

func (h *ViewsHandler) renderError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	h.renderPage(w, r, "error", viewData{User: middleware.CurrentUser(r), Message: message})
}
