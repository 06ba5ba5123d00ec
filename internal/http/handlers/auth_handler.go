package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/http/response"
	"github.com/trailborn/tours-api/internal/platform/auth"
	"github.com/trailborn/tours-api/internal/platform/mailer"
	"github.com/trailborn/tours-api/internal/repo/postgres"
	"github.com/trailborn/tours-api/pkg/config"
	"github.com/trailborn/tours-api/pkg/events"
	"github.com/trailborn/tours-api/pkg/logger"
)

type AuthHandler struct {
	Users    postgres.UserRepository
	EmailSvc mailer.Service
	Bus      events.Publisher
	Cfg      *config.Config
}

func NewAuthHandler(users postgres.UserRepository, emailSvc mailer.Service, bus events.Publisher, cfg *config.Config) *AuthHandler {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &AuthHandler{Users: users, EmailSvc: emailSvc, Bus: bus, Cfg: cfg}
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var in domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.Error(w, err)
		return
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		response.Error(w, err)
		return
	}

	u, err := h.Users.Create(r.Context(), &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	profileURL := h.Cfg.App.BaseURL + "/me"
	if err := h.EmailSvc.SendWelcome(u.Email, u.Name, profileURL); err != nil {
		// Signup still succeeds; the welcome email is best effort.
		logger.ErrorContext(r.Context(), "failed to send welcome email",
			"user_id", u.ID, "error", err)
	}

	if err := h.Bus.Publish(r.Context(), events.UserSignedUp, events.UserSignedUpEvent{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		SignedAt: time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to publish signup event", "error", err)
	}

	h.issueSession(w, r, u, http.StatusCreated)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	in.Normalize()
	if in.Email == "" || in.Password == "" {
		response.BadRequest(w, "please provide email and password")
		return
	}

	u, err := h.Users.FindByEmail(r.Context(), in.Email)
	if err != nil {
		response.Error(w, err)
		return
	}
	if u == nil {
		response.Unauthorized(w, "incorrect email or password")
		return
	}
	if ok, _ := argon2id.ComparePasswordAndHash(in.Password, u.PasswordHash); !ok {
		response.Unauthorized(w, "incorrect email or password")
		return
	}

	h.issueSession(w, r, u, http.StatusOK)
}

// logout overwrites the session cookie with a short-lived sentinel so
// browser clients drop the session without needing cookie deletion.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, nil)
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		response.BadRequest(w, "please provide your email address")
		return
	}

	u, err := h.Users.FindByEmail(r.Context(), domain.NormalizeEmail(in.Email))
	if err != nil {
		response.Error(w, err)
		return
	}
	if u == nil {
		response.NotFound(w, "there is no user with that email address")
		return
	}

	plaintext, hashed, err := auth.NewResetToken()
	if err != nil {
		response.Error(w, err)
		return
	}
	expires := time.Now().Add(h.Cfg.Auth.ResetTokenTTL)
	if err := h.Users.SetResetToken(r.Context(), u.ID, hashed, expires); err != nil {
		response.Error(w, err)
		return
	}

	resetURL := h.Cfg.App.BaseURL + "/api/v1/users/resetPassword/" + plaintext
	if err := h.EmailSvc.SendPasswordReset(u.Email, u.Name, resetURL); err != nil {
		// Roll back so the undelivered token cannot linger.
		if clearErr := h.Users.ClearResetToken(r.Context(), u.ID); clearErr != nil {
			logger.ErrorContext(r.Context(), "failed to clear reset token",
				"user_id", u.ID, "error", clearErr)
		}
		logger.ErrorContext(r.Context(), "failed to send reset email",
			"user_id", u.ID, "error", err)
		response.InternalError(w, "there was an error sending the email, try again later")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "token sent to email"})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		response.Error(w, err)
		return
	}

	hashed := auth.HashResetToken(chi.URLParam(r, "token"))
	u, err := h.Users.FindByResetToken(r.Context(), hashed)
	if err != nil {
		response.Error(w, err)
		return
	}
	if u == nil {
		response.BadRequest(w, "token is invalid or has expired")
		return
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.Users.UpdatePassword(r.Context(), u.ID, hash); err != nil {
		response.Error(w, err)
		return
	}

	h.issueSession(w, r, u, http.StatusOK)
}

func (h *AuthHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r)

	var in domain.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		response.Error(w, err)
		return
	}

	if ok, _ := argon2id.ComparePasswordAndHash(in.PasswordCurrent, u.PasswordHash); !ok {
		response.Unauthorized(w, "your current password is wrong")
		return
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.Users.UpdatePassword(r.Context(), u.ID, hash); err != nil {
		response.Error(w, err)
		return
	}

	h.issueSession(w, r, u, http.StatusOK)
}

// issueSession signs a fresh token, sets the browser cookie and writes
// the token plus the public user fields.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, u *domain.User, statusCode int) {
	token, err := auth.Issue(u.ID, u.Email, u.Role, h.Cfg.Auth.JWTSecret, h.Cfg.Auth.TokenTTL)
	if err != nil {
		response.Error(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.Cfg.Auth.CookieTTL),
		HttpOnly: true,
		Secure:   h.Cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, statusCode, map[string]any{
		"token": token,
		"user":  u,
	})
}
