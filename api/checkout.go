package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/pixelgrid-backend/errors"
	"github.com/vocdoni/pixelgrid-backend/pricing"
	"github.com/vocdoni/pixelgrid-backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// createCheckoutSessionHandler creates a Stripe checkout session for a block
// of the grid. The requested dimensions are coerced and clamped, and the price
// is always computed here. On success it returns {"url", "id"}. When Stripe
// fails the response is a 400 with the provider message as plain text.
func (a *API) createCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	req, err := readPurchaseRequest(w, r)
	if err != nil {
		errors.ErrMalformedBody.WithErr(err).WriteText(w)
		return
	}
	order := pricing.Quote(req, a.pricePerPixelCents)
	session, err := a.stripe.CreateCheckoutSession(r.Context(), order)
	if err != nil {
		log.Warnw("checkout session creation failed",
			"error", err.Error(),
			"wUnits", order.W,
			"hUnits", order.H,
			"totalCents", order.TotalCents)
		errors.ErrCheckoutSessionFailed.WithMessage(stripe.ProviderMessage(err)).WriteText(w)
		return
	}
	log.Debugw("checkout session created", "session", session.ID, "pixels", order.Pixels)
	httpWriteJSON(w, session)
}

// readPurchaseRequest decodes the purchase request of a checkout. Only JSON
// bodies are decoded, any other content type and an empty body yield the
// default request.
func readPurchaseRequest(w http.ResponseWriter, r *http.Request) (*pricing.PurchaseRequest, error) {
	req := pricing.NewPurchaseRequest()
	if !isJSONContent(r.Header.Get("Content-Type")) {
		return req, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	return req, nil
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// checkoutSessionHandler returns the status of a checkout session, used by the
// success page to confirm the payment.
func (a *API) checkoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		errors.ErrMalformedURLParam.With("missing session id").Write(w)
		return
	}
	status, err := a.stripe.GetCheckoutSession(r.Context(), sessionID)
	if err != nil {
		errors.ErrCheckoutSessionLookup.WithMessage(stripe.ProviderMessage(err)).Write(w)
		return
	}
	httpWriteJSON(w, status)
}

// publicConfigHandler returns the checkout configuration the client pages need
// to render prices and open Stripe.
func (a *API) publicConfigHandler(w http.ResponseWriter, _ *http.Request) {
	stripeConfig := a.stripe.Config()
	httpWriteJSON(w, &PublicConfig{
		PublishableKey:     stripeConfig.PublishableKey,
		PricePerPixelCents: a.pricePerPixelCents,
		PixelsPerUnit:      pricing.PixelsPerUnit,
		MinUnits:           pricing.MinUnits,
		MaxUnits:           pricing.MaxUnits,
		DefaultUnits:       pricing.DefaultUnits,
		Currency:           stripeConfig.Currency,
	})
}
