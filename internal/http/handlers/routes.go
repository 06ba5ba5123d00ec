package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/handlers/factory"
	"github.com/trailborn/tours-api/internal/http/middleware"
)

// API groups the handlers and the session guards behind one router.
type API struct {
	Auth     *AuthHandler
	Users    *UsersHandler
	Tours    *ToursHandler
	Reviews  *ReviewsHandler
	Bookings *BookingsHandler
	Views    *ViewsHandler
	Session  *middleware.Session
}

// Routes assembles the /api/v1 tree and the rendered pages.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		if a.Auth != nil {
			r.Mount("/users", a.userRoutes())
		}
		if a.Tours != nil {
			r.Mount("/tours", a.tourRoutes())
		}
		if a.Reviews != nil {
			r.Mount("/reviews", a.reviewRoutes())
		}
		if a.Bookings != nil {
			r.Mount("/bookings", a.bookingRoutes())
		}
	})

	if a.Views != nil {
		r.Group(func(r chi.Router) {
			r.Use(a.Session.Optional)
			r.Get("/", a.Views.overview)
			r.Get("/tours/{slug}", a.Views.tour)
			r.Get("/login", a.Views.login)
		})
	}

	return r
}

func (a *API) userRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", a.Auth.signup)
	r.Post("/login", a.Auth.login)
	r.Get("/logout", a.Auth.logout)
	r.Post("/forgotPassword", a.Auth.forgotPassword)
	r.Patch("/resetPassword/{token}", a.Auth.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(a.Session.Protect)

		r.Patch("/updateMyPassword", a.Auth.updatePassword)
		r.Get("/me", a.Users.me)
		r.Patch("/updateMe", a.Users.updateMe)
		r.Delete("/deleteMe", a.Users.deleteMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RestrictTo(domain.RoleAdmin))

			r.Get("/", factory.GetAll[domain.User, domain.UserPatch](a.Users.Users))
			r.Post("/", a.Users.createUser)
			r.Get("/{id}", factory.GetOne[domain.User, domain.UserPatch](a.Users.Users))
			r.Patch("/{id}", factory.UpdateOne[domain.User, domain.UserPatch](a.Users.Users))
			r.Delete("/{id}", factory.DeleteOne[domain.User, domain.UserPatch](a.Users.Users))
		})
	})

	return r
}

func (a *API) tourRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/top-5-cheap", factory.GetAll[domain.Tour, domain.TourPatch](a.Tours.Tours, topCheap))
	r.Get("/stats", a.Tours.stats)
	r.With(a.Session.Protect,
		middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide)).
		Get("/monthly-plan/{year}", a.Tours.monthlyPlan)

	r.Get("/", factory.GetAll[domain.Tour, domain.TourPatch](a.Tours.Tours))
	r.Get("/{id}", factory.GetOne[domain.Tour, domain.TourPatch](a.Tours.Tours))

	r.Group(func(r chi.Router) {
		r.Use(a.Session.Protect, middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide))

		r.Post("/", factory.CreateOne[domain.Tour, domain.TourPatch](a.Tours.Tours))
		r.Patch("/{id}", factory.UpdateOne[domain.Tour, domain.TourPatch](a.Tours.Tours))
		r.Delete("/{id}", factory.DeleteOne[domain.Tour, domain.TourPatch](a.Tours.Tours))
	})

	// Reviews nested under the tour they belong to. The parameter name
	// matches the sibling routes; chi rejects differing names at the
	// same position.
	if a.Reviews != nil {
		r.Route("/{id}/reviews", func(r chi.Router) {
			r.Use(a.Session.Protect)
			a.mountReviewCollection(r)
		})
	}

	return r
}

func (a *API) reviewRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(a.Session.Protect)

	a.mountReviewCollection(r)
	r.Get("/{id}", factory.GetOne[domain.Review, domain.ReviewPatch](a.Reviews.Reviews))
	r.With(middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin)).
		Patch("/{id}", factory.UpdateOne[domain.Review, domain.ReviewPatch](a.Reviews.Reviews))
	r.With(middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin)).
		Delete("/{id}", factory.DeleteOne[domain.Review, domain.ReviewPatch](a.Reviews.Reviews))

	return r
}

func (a *API) mountReviewCollection(r chi.Router) {
	r.Get("/", factory.GetAll[domain.Review, domain.ReviewPatch](a.Reviews.Reviews, scopeToTour))
	r.With(middleware.RestrictTo(domain.RoleUser)).
		Post("/", factory.CreateOne[domain.Review, domain.ReviewPatch](a.Reviews.Reviews, prepCreate))
}

func (a *API) bookingRoutes() chi.Router {
	r := chi.NewRouter()

	// The payment provider calls this back unauthenticated; the payload
	// signature is the credential.
	r.Post("/webhook", a.Bookings.webhook)

	r.Group(func(r chi.Router) {
		r.Use(a.Session.Protect)

		r.Get("/checkout-session/{tourID}", a.Bookings.checkoutSession)
		r.Get("/my-bookings", a.Bookings.myBookings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide))

			r.Get("/", factory.GetAll[domain.Booking, domain.BookingPatch](a.Bookings.Bookings))
			r.Post("/", factory.CreateOne[domain.Booking, domain.BookingPatch](a.Bookings.Bookings))
			r.Get("/{id}", factory.GetOne[domain.Booking, domain.BookingPatch](a.Bookings.Bookings))
			r.Patch("/{id}", factory.UpdateOne[domain.Booking, domain.BookingPatch](a.Bookings.Bookings))
			r.Delete("/{id}", factory.DeleteOne[domain.Booking, domain.BookingPatch](a.Bookings.Bookings))
		})
	})

	return r
}
