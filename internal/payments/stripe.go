package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bakery-service/internal/orders"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

type createSessionFunc func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Checkout opens Stripe checkout sessions for card orders.
type Checkout struct {
	successURL string
	cancelURL  string
	create     createSessionFunc
}

func NewCheckout(secretKey, successURL, cancelURL string) *Checkout {
	sc := &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return &Checkout{
		successURL: successURL,
		cancelURL:  cancelURL,
		create:     sc.New,
	}
}

// NewSession charges the recomputed order total as one line and tags the
// payment intent with the order id so the webhook can settle it.
func (c *Checkout) NewSession(ctx context.Context, o orders.Order) (string, error) {
	paise := o.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if paise <= 0 {
		return "", fmt.Errorf("order %s has no payable amount", o.ID)
	}

	meta := map[string]string{
		"order_id": o.ID,
		"user_id":  o.UserID,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(o.ID),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyINR)),
				UnitAmount: stripe.Int64(paise),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Bakery order " + o.ID),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: meta},
	}
	params.Context = ctx

	s, err := c.create(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return s.URL, nil
}

// Settlement is a successful payment reported by Stripe.
type Settlement struct {
	OrderID    string
	PaymentRef string
}

var (
	ErrMissingOrderID  = errors.New("payment intent carries no order_id metadata")
	ErrNoSigningSecret = errors.New("webhook signing secret is not configured")
)

// Webhook turns Stripe event deliveries into settlements. Every delivery must
// carry a valid signature; without a signing secret all of them are refused.
type Webhook struct {
	secret string
}

func NewWebhook(secret string) Webhook {
	return Webhook{secret: secret}
}

// Parse returns the settlement carried by payload, or ok=false for event
// types that do not settle an order.
func (w Webhook) Parse(payload []byte, signature string) (Settlement, stripe.EventType, bool, error) {
	if w.secret == "" {
		return Settlement{}, "", false, ErrNoSigningSecret
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Settlement{}, "", false, fmt.Errorf("verifying webhook: %w", err)
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		return Settlement{}, event.Type, false, nil
	}
	if event.Data == nil {
		return Settlement{}, event.Type, false, errors.New("event has no data")
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return Settlement{}, event.Type, false, fmt.Errorf("decoding payment intent: %w", err)
	}
	orderID := pi.Metadata["order_id"]
	if orderID == "" {
		return Settlement{}, event.Type, false, ErrMissingOrderID
	}
	return Settlement{OrderID: orderID, PaymentRef: pi.ID}, event.Type, true, nil
}
