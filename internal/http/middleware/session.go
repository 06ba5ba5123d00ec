// Package middleware carries the session guards for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/internal/http/response"
	"github.com/trailborn/tours-api/internal/platform/auth"
	"github.com/trailborn/tours-api/pkg/logger"
)

// SessionCookie names the cookie carrying the access token for browser
// clients. API clients use the Authorization header instead.
const SessionCookie = "jwt"

type contextKey string

const userKey contextKey = "current_user"

// UserFinder resolves the account behind a verified token.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// Session verifies bearer tokens and loads the current user.
type Session struct {
	secret string
	users  UserFinder
}

func NewSession(secret string, users UserFinder) *Session {
	return &Session{secret: secret, users: users}
}

// Protect rejects requests without a valid, still-current session. A failure
// to load the user behind a valid token is a server error, not a missing
// login.
func (s *Session) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolve(r)
		if errors.Is(err, auth.ErrInvalidToken) {
			response.Unauthorized(w, "you are not logged in, please log in to get access")
			return
		}
		if err != nil {
			response.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Optional attaches the current user when a valid session is present
// and lets the request through either way. Rendered pages use it to
// switch between logged-in and anonymous states.
func (s *Session) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := s.resolve(r); err == nil {
			r = r.WithContext(withUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Session) resolve(r *http.Request) (*domain.User, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	claims, err := auth.Verify(token, s.secret)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(r.Context(), claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user == nil {
		// Deleted or deactivated since the token was issued.
		return nil, auth.ErrInvalidToken
	}
	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RestrictTo limits a protected route to the given roles. It must run
// after Protect.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil {
				response.Unauthorized(w, "you are not logged in, please log in to get access")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.WarnContext(r.Context(), "forbidden by role",
				"user_id", user.ID, "role", user.Role, "path", r.URL.Path)
			response.Forbidden(w, "you do not have permission to perform this action")
		})
	}
}

// CurrentUser returns the authenticated user, or nil outside a session.
func CurrentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userKey).(*domain.User)
	return user
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, logger.UserIDKey, user.ID)
}
