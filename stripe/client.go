// Package stripe provides the integration with the Stripe payment service:
// hosted checkout sessions for grid purchases and the webhook events that
// confirm them.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	//revive:disable:import-alias-naming
	stripeapi "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
	"github.com/vocdoni/pixelgrid-backend/db"
	"github.com/vocdoni/pixelgrid-backend/pricing"
)

// paymentMethodCard is the only payment method offered on checkout.
const paymentMethodCard = "card"

// Client wraps the Stripe API client with the checkout configuration.
type Client struct {
	api    *stripeclient.API
	config *Config
}

// CheckoutSession is the part of a created session returned to the buyer.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutSessionStatus represents the status of a checkout session
type CheckoutSessionStatus struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"paymentStatus"`
	AmountTotal   int64             `json:"amountTotal"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewClient creates a new Stripe client with the given configuration. The
// client never retries failed requests.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, ErrInvalidConfiguration.withDetail("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	// each backend gets its own config, GetBackendWithConfig fills in the
	// default URL of its type
	newBackend := func(backendType stripeapi.SupportedBackend) stripeapi.Backend {
		backendConfig := &stripeapi.BackendConfig{
			LeveledLogger:     leveledLogger{},
			MaxNetworkRetries: stripeapi.Int64(0),
		}
		if config.BackendURL != "" {
			backendConfig.URL = stripeapi.String(config.BackendURL)
		}
		return stripeapi.GetBackendWithConfig(backendType, backendConfig)
	}
	api := stripeclient.New(config.APIKey, &stripeapi.Backends{
		API:     newBackend(stripeapi.APIBackend),
		Connect: newBackend(stripeapi.ConnectBackend),
		Uploads: newBackend(stripeapi.UploadsBackend),
	})
	return &Client{api: api, config: config}, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.config
}

// CreateCheckoutSession creates a hosted checkout session in payment mode for
// the order. The session has a single line item priced at the order total and
// carries the order dimensions, label and link as metadata.
// API description https://docs.stripe.com/api/checkout/sessions/create
func (c *Client) CreateCheckoutSession(ctx context.Context, order *pricing.Order) (*CheckoutSession, error) {
	productData := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripeapi.String(order.ProductName(c.config.ProductName)),
	}
	// Stripe rejects empty descriptions
	if description := order.Description(); description != "" {
		productData.Description = stripeapi.String(description)
	}
	priceData := &stripeapi.CheckoutSessionLineItemPriceDataParams{
		Currency:    stripeapi.String(c.config.Currency),
		ProductData: productData,
	}
	if amount, ok := order.UnitAmount(); ok {
		priceData.UnitAmount = stripeapi.Int64(amount)
	} else {
		priceData.UnitAmountDecimal = stripeapi.Float64(order.TotalCents)
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{paymentMethodCard}),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: priceData,
				Quantity:  stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(c.config.SuccessURL()),
		CancelURL:  stripeapi.String(c.config.CancelURL()),
	}
	params.Metadata = order.Metadata()
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, NewStripeError(ErrAPICallFailed.Code, "failed to create checkout session", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// GetCheckoutSession retrieves a checkout session by ID
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSessionStatus, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, NewStripeError(ErrAPICallFailed.Code, "failed to get checkout session", err)
	}
	status := &CheckoutSessionStatus{
		ID:            session.ID,
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		Metadata:      session.Metadata,
	}
	if session.CustomerDetails != nil {
		status.CustomerEmail = session.CustomerDetails.Email
	}
	return status, nil
}

// ValidateWebhookEvent validates the signature of a webhook payload and
// decodes the event.
func (c *Client) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	if c.config.WebhookSecret == "" {
		return nil, ErrWebhookDisabled
	}
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, c.config.WebhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, NewStripeError(ErrWebhookValidation.Code, ErrWebhookValidation.Message, err)
	}
	return &event, nil
}

// PurchaseFromEvent extracts the purchase described by a checkout session
// event. The session must carry the metadata set by CreateCheckoutSession.
func PurchaseFromEvent(event *stripeapi.Event) (*db.Purchase, error) {
	if event.Data == nil {
		return nil, ErrInvalidEvent.withDetail("event has no data")
	}
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, NewStripeError(ErrInvalidEvent.Code, "failed to parse checkout session from event", err)
	}
	if session.ID == "" {
		return nil, ErrInvalidEvent.withDetail("checkout session without id")
	}

	dimensions := make(map[string]float64, 3)
	for _, key := range []string{pricing.MetadataWUnits, pricing.MetadataHUnits, pricing.MetadataPixels} {
		value, ok := session.Metadata[key]
		if !ok {
			return nil, ErrInvalidEvent.withDetail(fmt.Sprintf("session %s missing %s metadata", session.ID, key))
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, NewStripeError(ErrInvalidEvent.Code,
				fmt.Sprintf("session %s has invalid %s metadata", session.ID, key), err)
		}
		dimensions[key] = f
	}

	purchase := &db.Purchase{
		SessionID:     session.ID,
		WUnits:        dimensions[pricing.MetadataWUnits],
		HUnits:        dimensions[pricing.MetadataHUnits],
		Pixels:        dimensions[pricing.MetadataPixels],
		Label:         session.Metadata[pricing.MetadataLabel],
		Href:          session.Metadata[pricing.MetadataHref],
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		PaymentStatus: string(session.PaymentStatus),
		CreatedAt:     time.Unix(session.Created, 0).UTC(),
	}
	if session.PaymentIntent != nil {
		purchase.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil {
		purchase.CustomerEmail = session.CustomerDetails.Email
	}
	return purchase, nil
}
