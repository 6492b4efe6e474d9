package api

const (
	// GET /ping to check the service is alive
	pingEndpoint = "/ping"

	// checkout routes

	// POST /api/create-checkout-session to create a checkout session for a
	// grid purchase
	createCheckoutSessionEndpoint = "/api/create-checkout-session"
	// GET /api/checkout-sessions/{sessionID} to get the status of a checkout session
	checkoutSessionEndpoint = "/api/checkout-sessions/{sessionID}"
	// GET /api/config to get the public checkout configuration
	configEndpoint = "/api/config"

	// reconciliation routes

	// POST /api/webhook to receive the Stripe webhook events
	webhookEndpoint = "/api/webhook"
	// GET /api/purchases to list the reconciled purchases, newest first
	purchasesEndpoint = "/api/purchases"
	// GET /api/purchases/{sessionID} to get a reconciled purchase
	purchaseEndpoint = "/api/purchases/{sessionID}"

	// GET /* to serve the static site
	staticEndpoint = "/*"
)
