// Package api provides the HTTP API of the pixel grid checkout service: the
// checkout session endpoints, the public configuration, the optional Stripe
// webhook and purchase ledger, and the static site.
package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/pixelgrid-backend/db"
	"github.com/vocdoni/pixelgrid-backend/pricing"
	"github.com/vocdoni/pixelgrid-backend/stripe"
	"go.vocdoni.io/dvote/log"
)

// maxRequestBodyBytes bounds every request body read by the API, the Stripe
// webhook payloads included.
const maxRequestBodyBytes = int64(65536)

// Config holds the dependencies and settings of the API.
type Config struct {
	Host string
	Port int
	// Stripe is the payment provider client, required.
	Stripe *stripe.Client
	// Webhooks handles the Stripe webhook events. The webhook route is only
	// registered when it is set.
	Webhooks *stripe.Service
	// DB is the optional purchase ledger.
	DB *db.MongoStorage
	// PricePerPixelCents is the price of a single pixel. Zero means the
	// default price.
	PricePerPixelCents int64
	// Static is the filesystem served on every path not handled by the API.
	// Nil disables the static site.
	Static fs.FS
}

// API type represents the API HTTP server.
type API struct {
	host               string
	port               int
	router             *chi.Mux
	stripe             *stripe.Client
	webhooks           *stripe.Service
	db                 *db.MongoStorage
	pricePerPixelCents int64
	static             fs.FS
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	price := conf.PricePerPixelCents
	if price <= 0 {
		price = pricing.DefaultPricePerPixelCents
	}
	return &API{
		host:               conf.Host,
		port:               conf.Port,
		stripe:             conf.Stripe,
		webhooks:           conf.Webhooks,
		db:                 conf.DB,
		pricePerPixelCents: price,
		static:             conf.Static,
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.Router()); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Router returns the HTTP handler with every route and middleware, building
// it on first use.
func (a *API) Router() http.Handler {
	if a.router == nil {
		a.router = a.initRouter()
	}
	return a.router
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() *chi.Mux {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))
	// a method without route is reported as a missing page, not a 405
	r.MethodNotAllowed(http.NotFound)

	r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(".")); err != nil {
			log.Warnw("failed to write ping response", "error", err)
		}
	})
	// create a checkout session for a grid purchase
	log.Infow("new route", "method", "POST", "path", createCheckoutSessionEndpoint)
	r.Post(createCheckoutSessionEndpoint, a.createCheckoutSessionHandler)
	// get the status of a checkout session
	log.Infow("new route", "method", "GET", "path", checkoutSessionEndpoint)
	r.Get(checkoutSessionEndpoint, a.checkoutSessionHandler)
	// public checkout configuration
	log.Infow("new route", "method", "GET", "path", configEndpoint)
	r.Get(configEndpoint, a.publicConfigHandler)
	if a.webhooks != nil {
		// handle stripe webhook
		log.Infow("new route", "method", "POST", "path", webhookEndpoint)
		r.Post(webhookEndpoint, a.webhookHandler)
	}
	if a.db != nil {
		// list the reconciled purchases
		log.Infow("new route", "method", "GET", "path", purchasesEndpoint)
		r.Get(purchasesEndpoint, a.purchasesHandler)
		// get a reconciled purchase
		log.Infow("new route", "method", "GET", "path", purchaseEndpoint)
		r.Get(purchaseEndpoint, a.purchaseHandler)
	}
	if a.static != nil {
		files := http.FileServer(http.FS(a.static))
		log.Infow("new route", "method", "GET", "path", staticEndpoint)
		r.Get(staticEndpoint, files.ServeHTTP)
		r.Head(staticEndpoint, files.ServeHTTP)
	}
	return r
}
