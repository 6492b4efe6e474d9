package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// StripeSessionURLPrefix is the hosted checkout URL prefix returned by the
// fake Stripe server.
const StripeSessionURLPrefix = "https://checkout.stripe.test/c/pay/"

// StripeServer is a fake Stripe API that serves the checkout session
// endpoints and records the requests it receives.
type StripeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	sessions map[string]map[string]any
	counter  atomic.Int64
	failure  *stripeFailure
}

type stripeFailure struct {
	status  int
	errType string
	message string
}

// NewStripeServer starts a fake Stripe API. Close it when done.
func NewStripeServer() *StripeServer {
	s := &StripeServer{sessions: make(map[string]map[string]any)}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/checkout/sessions", s.createSession)
	mux.HandleFunc("/v1/checkout/sessions/", s.getSession)
	s.Server = httptest.NewServer(mux)
	return s
}

// Fail makes every following request fail with the given HTTP status and
// provider message. A zero status restores normal operation.
func (s *StripeServer) Fail(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		s.failure = nil
		return
	}
	s.failure = &stripeFailure{status: status, errType: "invalid_request_error", message: message}
}

// Requests returns the form values of the session creation requests received.
func (s *StripeServer) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

// LastRequest returns the form of the last session creation request, or nil.
func (s *StripeServer) LastRequest() url.Values {
	requests := s.Requests()
	if len(requests) == 0 {
		return nil
	}
	return requests[len(requests)-1]
}

func (s *StripeServer) writeFailure(w http.ResponseWriter) bool {
	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()
	if failure == nil {
		return false
	}
	writeJSON(w, failure.status, map[string]any{
		"error": map[string]any{
			"type":    failure.errType,
			"message": failure.message,
		},
	})
	return true
}

func (s *StripeServer) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, r.PostForm)
	s.mu.Unlock()
	if s.writeFailure(w) {
		return
	}

	id := fmt.Sprintf("cs_test_%d", s.counter.Add(1))
	metadata := map[string]string{}
	for key, values := range r.PostForm {
		if strings.HasPrefix(key, "metadata[") && len(values) > 0 {
			metadata[strings.TrimSuffix(strings.TrimPrefix(key, "metadata["), "]")] = values[0]
		}
	}
	session := map[string]any{
		"id":             id,
		"object":         "checkout.session",
		"mode":           r.PostForm.Get("mode"),
		"status":         "open",
		"payment_status": "unpaid",
		"currency":       r.PostForm.Get("line_items[0][price_data][currency]"),
		"url":            StripeSessionURLPrefix + id,
		"success_url":    r.PostForm.Get("success_url"),
		"cancel_url":     r.PostForm.Get("cancel_url"),
		"metadata":       metadata,
	}
	if amount := r.PostForm.Get("line_items[0][price_data][unit_amount]"); amount != "" {
		var total int64
		if _, err := fmt.Sscan(amount, &total); err == nil {
			session["amount_total"] = total
		}
	}
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, session)
}

func (s *StripeServer) getSession(w http.ResponseWriter, r *http.Request) {
	if s.writeFailure(w) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/checkout/sessions/")
	s.mu.Lock()
	session, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"message": fmt.Sprintf("No such checkout.session: '%s'", id),
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
