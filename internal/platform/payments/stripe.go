package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/trailborn/tours-api/internal/domain"
)

type StripeGateway struct {
	webhookSecret string
	currency      string
}

func NewStripeGateway(secretKey, webhookSecret, currency string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, tour *domain.Tour, user *domain.User, successURL, cancelURL string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(strconv.FormatInt(tour.ID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(int64(tour.Price * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(tour.Name),
						Description: stripe.String(tour.Summary),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("tour_id", strconv.FormatInt(tour.ID, 10))
	params.AddMetadata("user_id", strconv.FormatInt(user.ID, 10))

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*CheckoutResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	tourID, err := strconv.ParseInt(s.Metadata["tour_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("webhook missing tour_id metadata")
	}
	userID, err := strconv.ParseInt(s.Metadata["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("webhook missing user_id metadata")
	}

	return &CheckoutResult{
		TourID:    tourID,
		UserID:    userID,
		Price:     float64(s.AmountTotal) / 100,
		SessionID: s.ID,
	}, nil
}
