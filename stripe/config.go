package stripe

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vocdoni/pixelgrid-backend/pricing"
)

const (
	// DefaultSiteURL is the public base URL used to build the redirect URLs.
	DefaultSiteURL = "http://localhost:4242"
	// DefaultCurrency is the currency of every checkout line item.
	DefaultCurrency = "usd"

	successPath = "/success.html?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/?canceled=1"
)

// Config holds the Stripe account configuration and the checkout settings.
type Config struct {
	APIKey         string `yaml:"api_key" json:"api_key"`
	PublishableKey string `yaml:"publishable_key" json:"publishable_key"`
	WebhookSecret  string `yaml:"webhook_secret" json:"webhook_secret"`
	// BackendURL overrides the Stripe API base URL, for stripe-mock or tests.
	BackendURL  string `yaml:"backend_url" json:"backend_url"`
	SiteURL     string `yaml:"site_url" json:"site_url"`
	Currency    string `yaml:"currency" json:"currency"`
	ProductName string `yaml:"product_name" json:"product_name"`
}

// Validate checks the required fields and fills in the defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrInvalidConfiguration.withDetail("missing Stripe secret key")
	}
	if c.SiteURL == "" {
		c.SiteURL = DefaultSiteURL
	}
	if _, err := url.Parse(c.SiteURL); err != nil {
		return NewStripeError(ErrInvalidConfiguration.Code, fmt.Sprintf("invalid site URL %q", c.SiteURL), err)
	}
	c.SiteURL = strings.TrimSuffix(c.SiteURL, "/")
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.ProductName == "" {
		c.ProductName = pricing.DefaultProductName
	}
	return nil
}

// SuccessURL is where the provider redirects after a completed payment. The
// session id placeholder is replaced by the provider.
func (c *Config) SuccessURL() string {
	return c.SiteURL + successPath
}

// CancelURL is where the provider redirects when the buyer cancels.
func (c *Config) CancelURL() string {
	return c.SiteURL + cancelPath
}
