package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

// StripeProvider drives Stripe Checkout through an injected client.API;
// the global stripe.Key is never set.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeProvider(secretKey, webhookSecret, successURL, cancelURL string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.successURL),
		CancelURL:         stripe.String(p.cancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		ExpiresAt:         stripe.Int64(req.ExpiresAt.Unix()),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("order_id", req.OrderID)
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, lineItem(l.Name, req.Currency, l.UnitAmount, l.Quantity))
	}
	if req.ShippingCents > 0 {
		params.LineItems = append(params.LineItems, lineItem("Shipping", req.Currency, req.ShippingCents, 1))
	}
	if req.TaxCents > 0 {
		params.LineItems = append(params.LineItems, lineItem("Tax", req.Currency, req.TaxCents, 1))
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orders.ErrProviderUnavailable, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func lineItem(name, currency string, unitAmount, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(qty),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(unitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orders.ErrProviderUnavailable, err)
	}
	st := &SessionStatus{URL: sess.URL}
	switch sess.Status {
	case stripe.CheckoutSessionStatusComplete:
		st.State = SessionComplete
	case stripe.CheckoutSessionStatusExpired:
		st.State = SessionExpired
	default:
		st.State = SessionOpen
	}
	return st, nil
}

// ParseEvent verifies the webhook signature before trusting anything in
// the payload.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	ev := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return ev, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	completed := &CompletedEvent{
		EventID:    event.ID,
		OrderID:    sess.Metadata["order_id"],
		SessionRef: sess.ID,
	}
	if sess.PaymentIntent != nil {
		completed.IntentRef = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		completed.Email = sess.CustomerDetails.Email
	}
	if sess.ShippingDetails != nil {
		addr := &orders.Address{Name: sess.ShippingDetails.Name}
		if a := sess.ShippingDetails.Address; a != nil {
			addr.Line1 = a.Line1
			addr.Line2 = a.Line2
			addr.City = a.City
			addr.State = a.State
			addr.PostalCode = a.PostalCode
			addr.Country = a.Country
		}
		completed.ShippingAddress = addr
	}
	ev.Completed = completed
	return ev, nil
}
