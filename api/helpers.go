package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/pixelgrid-backend/db"
	"github.com/vocdoni/pixelgrid-backend/errors"
	"go.vocdoni.io/dvote/log"
)

// httpWriteJSON helper function allows to write a JSON response. The data is
// encoded before anything is written, so an encoding failure is still
// reported as a server error.
func httpWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errors.ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// publicPurchase returns the purchase without the buyer's private details.
func publicPurchase(purchase db.Purchase) db.Purchase {
	purchase.CustomerEmail = ""
	purchase.PaymentIntentID = ""
	return purchase
}
