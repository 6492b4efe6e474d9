package api

import (
	goerrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/pixelgrid-backend/db"
	"github.com/vocdoni/pixelgrid-backend/errors"
	"github.com/vocdoni/pixelgrid-backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// webhookHandler processes the Stripe webhook events. Payloads failing the
// signature check get a 400. Events of sessions without pixel metadata are
// acknowledged with a 200 and skipped. Storage failures get a 500 and Stripe
// redelivers the event later.
func (a *API) webhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		errors.ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	signatureHeader := r.Header.Get("Stripe-Signature")
	if signatureHeader == "" {
		errors.ErrWebhookSignature.With("missing Stripe-Signature header").Write(w)
		return
	}
	if err := a.webhooks.HandleWebhookEvent(payload, signatureHeader); err != nil {
		switch {
		case goerrors.Is(err, stripe.ErrWebhookValidation):
			errors.ErrWebhookSignature.WithErr(err).Write(w)
		default:
			log.Errorw(err, "stripe webhook: failed to process event")
			errors.ErrStripeWebhookError.WithErr(err).Write(w)
		}
		return
	}
	httpWriteOK(w)
}

// purchasesHandler lists the purchases of the ledger, newest first. The
// buyer's email and payment intent are left out.
func (a *API) purchasesHandler(w http.ResponseWriter, _ *http.Request) {
	purchases, err := a.db.Purchases()
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	for i := range purchases {
		purchases[i] = publicPurchase(purchases[i])
	}
	httpWriteJSON(w, db.PurchaseCollection{Purchases: purchases})
}

// purchaseHandler returns a purchase of the ledger by its checkout session id.
func (a *API) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		errors.ErrMalformedURLParam.With("missing session id").Write(w)
		return
	}
	purchase, err := a.db.Purchase(sessionID)
	if err != nil {
		if goerrors.Is(err, db.ErrNotFound) {
			errors.ErrPurchaseNotFound.Write(w)
			return
		}
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, publicPurchase(*purchase))
}
