package stripe

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
	"github.com/vocdoni/pixelgrid-backend/db"
)

const testWebhookSecret = "whsec_pixelgrid_test"

type memoryPurchases struct {
	mu        sync.Mutex
	purchases map[string]*db.Purchase
	calls     int
}

func (m *memoryPurchases) SetPurchase(purchase *db.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purchases == nil {
		m.purchases = make(map[string]*db.Purchase)
	}
	m.purchases[purchase.SessionID] = purchase
	m.calls++
	return nil
}

func newWebhookService(c *qt.C, store PurchaseStore) *Service {
	client, err := NewClient(&Config{APIKey: "sk_test_pixelgrid", WebhookSecret: testWebhookSecret})
	c.Assert(err, qt.IsNil)
	events := NewMemoryEventStore(time.Hour)
	c.Cleanup(events.Close)
	return NewService(client, store, events)
}

func checkoutEvent(c *qt.C, eventID, eventType string, metadata map[string]string) []byte {
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2024-09-30.acacia",
		"created":     1735689600,
		"data": map[string]any{
			"object": map[string]any{
				"id":             "cs_test_42",
				"object":         "checkout.session",
				"amount_total":   50000,
				"currency":       "usd",
				"payment_status": "paid",
				"status":         "complete",
				"created":        1735689600,
				"payment_intent": "pi_test_42",
				"customer_details": map[string]any{
					"email": "buyer@example.com",
				},
				"metadata": metadata,
			},
		},
	})
	c.Assert(err, qt.IsNil)
	return payload
}

func sign(payload []byte, secret string) string {
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	})
	return signed.Header
}

var testMetadata = map[string]string{
	"wUnits": "1",
	"hUnits": "5",
	"pixels": "500",
	"label":  "Acme",
	"href":   "https://acme.test",
}

func TestWebhookStoresPurchase(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_1", "checkout.session.completed", testMetadata)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)

	purchase := store.purchases["cs_test_42"]
	c.Assert(purchase, qt.IsNotNil)
	c.Assert(purchase.WUnits, qt.Equals, float64(1))
	c.Assert(purchase.HUnits, qt.Equals, float64(5))
	c.Assert(purchase.Pixels, qt.Equals, float64(500))
	c.Assert(purchase.Label, qt.Equals, "Acme")
	c.Assert(purchase.Href, qt.Equals, "https://acme.test")
	c.Assert(purchase.AmountTotal, qt.Equals, int64(50000))
	c.Assert(purchase.Currency, qt.Equals, "usd")
	c.Assert(purchase.PaymentStatus, qt.Equals, "paid")
	c.Assert(purchase.PaymentIntentID, qt.Equals, "pi_test_42")
	c.Assert(purchase.CustomerEmail, qt.Equals, "buyer@example.com")
	c.Assert(purchase.CreatedAt.Equal(time.Unix(1735689600, 0)), qt.IsTrue)
}

func TestWebhookSkipsRedelivery(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_dup", "checkout.session.completed", testMetadata)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
	c.Assert(store.calls, qt.Equals, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_2", "checkout.session.completed", testMetadata)
	err := service.HandleWebhookEvent(payload, sign(payload, "whsec_other"))
	c.Assert(errors.Is(err, ErrWebhookValidation), qt.IsTrue)

	err = service.HandleWebhookEvent(payload, "")
	c.Assert(errors.Is(err, ErrWebhookValidation), qt.IsTrue)
	c.Assert(store.calls, qt.Equals, 0)
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	c := qt.New(t)
	client, err := NewClient(&Config{APIKey: "sk_test_pixelgrid"})
	c.Assert(err, qt.IsNil)
	service := NewService(client, nil, nil)

	payload := checkoutEvent(c, "evt_3", "checkout.session.completed", testMetadata)
	err = service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret))
	c.Assert(errors.Is(err, ErrWebhookDisabled), qt.IsTrue)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_4", "checkout.session.expired", testMetadata)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
	c.Assert(store.calls, qt.Equals, 0)
}

func TestWebhookAsyncPaymentSucceeded(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_5", "checkout.session.async_payment_succeeded", testMetadata)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
	c.Assert(store.calls, qt.Equals, 1)
}

func TestWebhookMissingMetadata(t *testing.T) {
	c := qt.New(t)
	store := &memoryPurchases{}
	service := newWebhookService(c, store)

	payload := checkoutEvent(c, "evt_6", "checkout.session.completed", map[string]string{"label": "Acme"})
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
	c.Assert(store.calls, qt.Equals, 0)

	// foreign sessions are acknowledged, so a redelivery is skipped
	c.Assert(service.events.EventExists("evt_6"), qt.IsTrue)

	event := &stripeapi.Event{}
	c.Assert(json.Unmarshal(payload, event), qt.IsNil)
	_, err := PurchaseFromEvent(event)
	c.Assert(errors.Is(err, ErrInvalidEvent), qt.IsTrue)
}

func TestWebhookWithoutStore(t *testing.T) {
	c := qt.New(t)
	service := newWebhookService(c, nil)

	payload := checkoutEvent(c, "evt_7", "checkout.session.completed", testMetadata)
	c.Assert(service.HandleWebhookEvent(payload, sign(payload, testWebhookSecret)), qt.IsNil)
}

func TestMemoryEventStoreExpiry(t *testing.T) {
	c := qt.New(t)
	store := NewMemoryEventStore(time.Minute)
	defer store.Close()

	c.Assert(store.EventExists("evt_a"), qt.IsFalse)
	c.Assert(store.MarkProcessed("evt_a"), qt.IsNil)
	c.Assert(store.EventExists("evt_a"), qt.IsTrue)
	c.Assert(store.Size(), qt.Equals, 1)

	store.purge(time.Now().Add(30 * time.Second))
	c.Assert(store.Size(), qt.Equals, 1)
	store.purge(time.Now().Add(2 * time.Minute))
	c.Assert(store.Size(), qt.Equals, 0)
	c.Assert(store.EventExists("evt_a"), qt.IsFalse)

	// closing twice is safe
	store.Close()
}
