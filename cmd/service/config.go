package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/pixelgrid-backend/pricing"
	"github.com/vocdoni/pixelgrid-backend/stripe"
)

const (
	defaultHost     = "0.0.0.0"
	defaultPort     = 4242
	defaultMongoDB  = "pixelgrid"
	defaultLogLevel = "info"
	defaultEnvFile  = ".env"
)

// envKeys maps every configuration key to the environment variable that sets
// it. The same names are read from the env file.
var envKeys = map[string]string{
	"host":                   "HOST",
	"port":                   "PORT",
	"stripe-secret-key":      "STRIPE_SECRET_KEY",
	"stripe-publishable-key": "STRIPE_PUBLISHABLE_KEY",
	"stripe-webhook-secret":  "STRIPE_WEBHOOK_SECRET",
	"stripe-api-url":         "STRIPE_API_URL",
	"price-per-pixel-cents":  "PRICE_PER_PIXEL_CENTS",
	"site-url":               "SITE_URL",
	"product-name":           "PRODUCT_NAME",
	"public-dir":             "PUBLIC_DIR",
	"mongo-url":              "MONGO_URL",
	"mongo-db":               "MONGO_DB",
	"log-level":              "LOG_LEVEL",
}

// serviceConfig is the resolved configuration of the service.
type serviceConfig struct {
	Host               string
	Port               int
	Stripe             *stripe.Config
	PricePerPixelCents int64
	PublicDir          string
	MongoURL           string
	MongoDB            string
	LogLevel           string
}

// loadConfig resolves the configuration from the command line arguments, the
// environment and the env file, in that order of precedence. It fails when
// the Stripe secret key is missing or a numeric value is invalid.
func loadConfig(args []string) (*serviceConfig, error) {
	flags := flag.NewFlagSet("pixelgrid", flag.ContinueOnError)
	flags.StringP("host", "h", defaultHost, "listen address")
	flags.IntP("port", "p", defaultPort, "listen port")
	flags.String("stripe-secret-key", "", "Stripe secret API key (required)")
	flags.String("stripe-publishable-key", "", "Stripe publishable key exposed to the client pages")
	flags.String("stripe-webhook-secret", "", "Stripe webhook signing secret, enables the webhook endpoint")
	flags.String("stripe-api-url", "", "override the Stripe API URL, for stripe-mock")
	flags.Int64("price-per-pixel-cents", pricing.DefaultPricePerPixelCents, "price of a pixel in cents")
	flags.String("site-url", stripe.DefaultSiteURL, "public base URL of the site, used for the checkout redirects")
	flags.String("product-name", pricing.DefaultProductName, "prefix of the checkout line item name")
	flags.String("public-dir", "", "directory with the static site, the embedded site is served when empty")
	flags.String("mongo-url", "", "URL of the MongoDB server holding the purchase ledger, disabled when empty")
	flags.String("mongo-db", defaultMongoDB, "name of the MongoDB database")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("env-file", defaultEnvFile, "file with KEY=value environment defaults")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := mergeEnvFile(v, envFile, flags.Changed("env-file")); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("port")))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %q", v.GetString("port"))
	}
	price, err := strconv.ParseInt(strings.TrimSpace(v.GetString("price-per-pixel-cents")), 10, 64)
	if err != nil || price <= 0 {
		return nil, fmt.Errorf("invalid price per pixel %q, must be a positive integer",
			v.GetString("price-per-pixel-cents"))
	}
	conf := &serviceConfig{
		Host: v.GetString("host"),
		Port: port,
		Stripe: &stripe.Config{
			APIKey:         v.GetString("stripe-secret-key"),
			PublishableKey: v.GetString("stripe-publishable-key"),
			WebhookSecret:  v.GetString("stripe-webhook-secret"),
			BackendURL:     v.GetString("stripe-api-url"),
			SiteURL:        v.GetString("site-url"),
			ProductName:    v.GetString("product-name"),
		},
		PricePerPixelCents: price,
		PublicDir:          v.GetString("public-dir"),
		MongoURL:           v.GetString("mongo-url"),
		MongoDB:            v.GetString("mongo-db"),
		LogLevel:           v.GetString("log-level"),
	}
	if err := conf.Stripe.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// mergeEnvFile loads the env file as the configuration layer below the
// environment. A missing file is ignored unless it was set explicitly.
func mergeEnvFile(v *viper.Viper, path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	values := make(map[string]any)
	for key, env := range envKeys {
		// the env reader lower cases the variable names
		if name := strings.ToLower(env); dotenv.IsSet(name) {
			values[key] = dotenv.Get(name)
		}
	}
	return v.MergeConfigMap(values)
}
