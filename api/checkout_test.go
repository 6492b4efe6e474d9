package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/pixelgrid-backend/test"
)

const jsonContent = "application/json"

func TestCreateCheckoutSession(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		w, h        string
		pixels      string
		amount      string
		productName string
	}{
		{"defaults", jsonContent, `{}`, "10", "10", "10000", "1000000", "Dubai MDH Block 10x10 (10,000 px)"},
		{"empty body", jsonContent, ``, "10", "10", "10000", "1000000", "Dubai MDH Block 10x10 (10,000 px)"},
		{"not json", "text/plain", `{"wUnits":3}`, "10", "10", "10000", "1000000", "Dubai MDH Block 10x10 (10,000 px)"},
		{"json suffix", "application/ld+json", `{"wUnits":3}`, "10", "10", "10000", "1000000", "Dubai MDH Block 10x10 (10,000 px)"},
		{"zero width", jsonContent, `{"wUnits":0,"hUnits":5}`, "1", "5", "500", "50000", "Dubai MDH Block 1x5 (500 px)"},
		{"width above max", jsonContent, `{"wUnits":500,"hUnits":3}`, "100", "3", "30000", "3000000", "Dubai MDH Block 100x3 (30,000 px)"},
		{"numeric strings", "application/json; charset=utf-8", `{"wUnits":"20","hUnits":"4"}`, "20", "4", "8000", "800000", "Dubai MDH Block 20x4 (8,000 px)"},
		{"garbage values", jsonContent, `{"wUnits":"abc","hUnits":{}}`, "1", "1", "100", "10000", "Dubai MDH Block 1x1 (100 px)"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			status, body, contentType := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, tt.contentType, []byte(tt.body))
			c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
			c.Assert(contentType, qt.Equals, "application/json")

			resp := map[string]string{}
			c.Assert(json.Unmarshal(body, &resp), qt.IsNil)
			c.Assert(resp["id"], qt.Not(qt.Equals), "")
			c.Assert(resp["url"], qt.Equals, test.StripeSessionURLPrefix+resp["id"])

			form := testStripe.LastRequest()
			c.Assert(form.Get("metadata[wUnits]"), qt.Equals, tt.w)
			c.Assert(form.Get("metadata[hUnits]"), qt.Equals, tt.h)
			c.Assert(form.Get("metadata[pixels]"), qt.Equals, tt.pixels)
			c.Assert(form.Get("line_items[0][price_data][unit_amount]"), qt.Equals, tt.amount)
			c.Assert(form.Get("line_items[0][price_data][product_data][name]"), qt.Equals, tt.productName)
			c.Assert(form.Get("success_url"), qt.Equals, testSiteURL+"/success.html?session_id={CHECKOUT_SESSION_ID}")
			c.Assert(form.Get("cancel_url"), qt.Equals, testSiteURL+"/?canceled=1")
		})
	}
}

func TestCreateCheckoutSessionLabelAndHref(t *testing.T) {
	c := qt.New(t)

	body := `{"wUnits":2,"hUnits":2,"label":"Acme","href":"https://acme.test"}`
	status, _, _ := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(body))
	c.Assert(status, qt.Equals, http.StatusOK)

	form := testStripe.LastRequest()
	c.Assert(form.Get("line_items[0][price_data][product_data][description]"), qt.Equals, "Acme • https://acme.test")
	c.Assert(form.Get("metadata[label]"), qt.Equals, "Acme")
	c.Assert(form.Get("metadata[href]"), qt.Equals, "https://acme.test")

	body = `{"href":"https://acme.test"}`
	status, _, _ = doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(body))
	c.Assert(status, qt.Equals, http.StatusOK)
	form = testStripe.LastRequest()
	c.Assert(form.Get("line_items[0][price_data][product_data][description]"), qt.Equals, "https://acme.test")
}

func TestCreateCheckoutSessionIgnoresClientPrice(t *testing.T) {
	c := qt.New(t)

	body := `{"wUnits":1,"hUnits":1,"totalCents":1,"pricePerPixelCents":0,"pixels":1}`
	status, _, _ := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(body))
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(testStripe.LastRequest().Get("line_items[0][price_data][unit_amount]"), qt.Equals, "10000")
}

func TestCreateCheckoutSessionMalformedBody(t *testing.T) {
	c := qt.New(t)
	before := len(testStripe.Requests())

	for _, body := range []string{`{"wUnits":`, `"10"`, `42`} {
		status, respBody, contentType := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(body))
		c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("body: %s", body))
		c.Assert(strings.HasPrefix(contentType, "text/plain"), qt.IsTrue)
		c.Assert(string(respBody), qt.Contains, "invalid JSON request body")
	}
	// no provider call for a rejected body
	c.Assert(testStripe.Requests(), qt.HasLen, before)
}

func TestCreateCheckoutSessionProviderFailure(t *testing.T) {
	c := qt.New(t)
	defer testStripe.Fail(0, "")

	testStripe.Fail(http.StatusUnauthorized, "Invalid API Key provided: sk_test_****grid")
	before := len(testStripe.Requests())
	status, body, contentType := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(`{}`))
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(strings.HasPrefix(contentType, "text/plain"), qt.IsTrue)
	c.Assert(strings.TrimSpace(string(body)), qt.Equals, "Invalid API Key provided: sk_test_****grid")
	// a single attempt, never retried
	c.Assert(testStripe.Requests(), qt.HasLen, before+1)

	// without a provider message the generic one is used
	testStripe.Fail(http.StatusBadRequest, "")
	status, body, _ = doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(`{}`))
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(strings.TrimSpace(string(body)), qt.Equals, "Failed to create session")
}

func TestCheckoutSessionStatus(t *testing.T) {
	c := qt.New(t)

	status, body, _ := doRequest(c, http.MethodPost, createCheckoutSessionEndpoint, jsonContent, []byte(`{"wUnits":3,"hUnits":3}`))
	c.Assert(status, qt.Equals, http.StatusOK)
	created := map[string]string{}
	c.Assert(json.Unmarshal(body, &created), qt.IsNil)

	status, body, _ = doRequest(c, http.MethodGet, "/api/checkout-sessions/"+created["id"], "", nil)
	c.Assert(status, qt.Equals, http.StatusOK)
	session := map[string]any{}
	c.Assert(json.Unmarshal(body, &session), qt.IsNil)
	c.Assert(session["id"], qt.Equals, created["id"])
	c.Assert(session["status"], qt.Equals, "open")
	c.Assert(session["amountTotal"], qt.Equals, float64(90000))

	status, body, _ = doRequest(c, http.MethodGet, "/api/checkout-sessions/cs_test_missing", "", nil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(string(body), qt.Contains, "No such checkout.session")
	c.Assert(string(body), qt.Contains, "40051")
}
