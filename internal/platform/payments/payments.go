package payments

import (
	"context"

	"github.com/trailborn/tours-api/internal/domain"
)

// Session is a checkout session the client gets redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutResult is what a completed checkout webhook resolves to.
type CheckoutResult struct {
	TourID    int64
	UserID    int64
	Price     float64
	SessionID string
}

// Gateway creates checkout sessions and resolves webhook callbacks. The
// payment provider itself is a collaborator behind this interface.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, tour *domain.Tour, user *domain.User, successURL, cancelURL string) (*Session, error)
	// ParseWebhook verifies the payload signature. It returns (nil, nil) for
	// event types the API does not care about.
	ParseWebhook(payload []byte, signature string) (*CheckoutResult, error)
}
