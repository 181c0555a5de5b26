package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

var ErrInvalidSignature = errors.New("invalid webhook signature")

type DepositRequest struct {
	BookingID   string
	Email       string
	Description string
	AmountCents int64
}

type CheckoutLink struct {
	SessionID string
	URL       string
}

// PaymentEvent is the part of a webhook event the booking flow cares about.
type PaymentEvent struct {
	Type        string
	BookingID   string
	SessionID   string
	AmountCents int64
	Paid        bool
}

// StripeGateway creates Checkout sessions for booking deposits.
type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
	baseURL       string
	currency      string
}

func NewStripeGateway(secretKey, webhookSecret, baseURL, currency string) *StripeGateway {
	return &StripeGateway{
		sessions:      &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		currency:      currency,
	}
}

func (g *StripeGateway) CreateDepositLink(ctx context.Context, req DepositRequest) (*CheckoutLink, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.BookingID),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/booking/%s?payment=success", g.baseURL, req.BookingID)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/booking/%s?payment=cancelled", g.baseURL, req.BookingID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutLink{SessionID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// checkout session of completed-checkout events.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	pe := &PaymentEvent{Type: string(event.Type)}
	if pe.Type != EventCheckoutCompleted {
		return pe, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	pe.BookingID = cs.ClientReferenceID
	if pe.BookingID == "" {
		pe.BookingID = cs.Metadata["booking_id"]
	}
	pe.SessionID = cs.ID
	pe.AmountCents = cs.AmountTotal
	pe.Paid = cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return pe, nil
}
