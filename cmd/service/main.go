package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	root "github.com/vocdoni/pixelgrid-backend"
	"github.com/vocdoni/pixelgrid-backend/api"
	"github.com/vocdoni/pixelgrid-backend/db"
	"github.com/vocdoni/pixelgrid-backend/stripe"
	"go.vocdoni.io/dvote/log"
)

func main() {
	conf, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	logLevel := defaultLogLevel
	if conf != nil {
		logLevel = conf.LogLevel
	}
	log.Init(logLevel, "stdout", nil)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// create the Stripe client
	stripeClient, err := stripe.NewClient(conf.Stripe)
	if err != nil {
		log.Fatalf("could not create the Stripe client: %v", err)
	}
	// initialize the optional purchase ledger
	var database *db.MongoStorage
	var purchases stripe.PurchaseStore
	if conf.MongoURL != "" {
		if database, err = db.New(conf.MongoURL, conf.MongoDB); err != nil {
			log.Fatalf("could not create the MongoDB database: %v", err)
		}
		defer database.Close()
		purchases = database
	}
	// the webhook is only served with a signing secret
	var webhooks *stripe.Service
	if conf.Stripe.WebhookSecret != "" {
		events := stripe.NewMemoryEventStore(0)
		defer events.Close()
		webhooks = stripe.NewService(stripeClient, purchases, events)
	}
	static, err := staticSite(conf.PublicDir)
	if err != nil {
		log.Fatalf("could not open the static site: %v", err)
	}

	// create the local API server
	api.New(&api.Config{
		Host:               conf.Host,
		Port:               conf.Port,
		Stripe:             stripeClient,
		Webhooks:           webhooks,
		DB:                 database,
		PricePerPixelCents: conf.PricePerPixelCents,
		Static:             static,
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Infow("server started",
		"host", conf.Host,
		"port", conf.Port,
		"siteURL", conf.Stripe.SiteURL,
		"pricePerPixelCents", conf.PricePerPixelCents,
		"webhook", webhooks != nil,
		"ledger", database != nil)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Infow("server stopped")
}

// staticSite returns the filesystem of the static site: the given directory,
// or the embedded site when dir is empty.
func staticSite(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(root.Public, root.PublicDir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
