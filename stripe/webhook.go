package stripe

import (
	"errors"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/vocdoni/pixelgrid-backend/db"
	"go.vocdoni.io/dvote/log"
)

// PurchaseStore records reconciled purchases.
type PurchaseStore interface {
	SetPurchase(purchase *db.Purchase) error
}

// Service handles the webhook events of completed checkouts.
type Service struct {
	client *Client
	store  PurchaseStore
	events EventStore
}

// NewService creates a webhook service. The store may be nil, in which case
// completed purchases are only logged.
func NewService(client *Client, store PurchaseStore, events EventStore) *Service {
	if events == nil {
		events = NewMemoryEventStore(0)
	}
	return &Service{client: client, store: store, events: events}
}

// HandleWebhookEvent validates a webhook payload and processes the event it
// carries. Events already processed are skipped.
func (s *Service) HandleWebhookEvent(payload []byte, signatureHeader string) error {
	event, err := s.client.ValidateWebhookEvent(payload, signatureHeader)
	if err != nil {
		return err
	}
	if s.events.EventExists(event.ID) {
		log.Debugf("stripe webhook: event %s already processed, skipping", event.ID)
		return nil
	}
	if err := s.HandleEvent(event); err != nil {
		return err
	}
	return s.events.MarkProcessed(event.ID)
}

// HandleEvent processes a decoded event.
func (s *Service) HandleEvent(event *stripeapi.Event) error {
	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted,
		stripeapi.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return s.handleCheckoutCompleted(event)
	default:
		log.Debugf("stripe webhook: received unhandled event type %s (id %s)", event.Type, event.ID)
		return nil
	}
}

// handleCheckoutCompleted records the purchase of a completed session.
// Sessions not created by this service (no pixel metadata) are acknowledged
// and skipped, a redelivery would fail the same way.
func (s *Service) handleCheckoutCompleted(event *stripeapi.Event) error {
	purchase, err := PurchaseFromEvent(event)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			log.Warnw("stripe webhook: ignoring checkout session",
				"event", event.ID, "type", event.Type, "error", err.Error())
			return nil
		}
		return err
	}
	log.Infow("checkout completed",
		"session", purchase.SessionID,
		"status", purchase.PaymentStatus,
		"wUnits", purchase.WUnits,
		"hUnits", purchase.HUnits,
		"pixels", purchase.Pixels,
		"amount", purchase.AmountTotal,
		"currency", purchase.Currency)
	if s.store == nil {
		return nil
	}
	return s.store.SetPurchase(purchase)
}
