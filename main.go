package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mypubsub"
	"github.com/MarcGrol/paymentforms/lib/myqueue"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/lib/myvault"
	"github.com/MarcGrol/paymentforms/services/checkout"
	"github.com/MarcGrol/paymentforms/services/fakepayer"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/forms"
	"github.com/MarcGrol/paymentforms/services/plans"
	"github.com/MarcGrol/paymentforms/services/settings"
	"github.com/MarcGrol/paymentforms/services/warmup"
)

type Config struct {
	HttpAddr string `envDefault:":8080"`
	SiteName string `envDefault:"Payment forms"`

	StripeTestPublishableKey string
	StripeTestSecretKey      string
	StripeTestWebhookSecret  string
	StripeLivePublishableKey string
	StripeLiveSecretKey      string
	StripeLiveWebhookSecret  string

	// Applies per client ip to the endpoints that price and submit a payment form
	PublicRateLimit float64 `envDefault:"5"`
	PublicRateBurst int     `envDefault:"10"`

	// Runs against an in-memory stripe stand-in: for local development without stripe account
	FakeStripe bool
}

func loadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %s", err)
	}

	return env.ParseAsWithOptions[Config](env.Options{Prefix: "PAYMENTFORMS_", UseFieldNameByDefault: true})
}

func main() {
	c := context.Background()

	conf, err := loadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	vault, vaultCleanup, err := myvault.New(c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}
	defer vaultCleanup()

	err = seedVault(c, vault, conf)
	if err != nil {
		log.Fatalf("Error storing stripe keys: %s", err)
	}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	settingsStore, settingsCleanup, err := mystore.New[settings.Settings](c)
	if err != nil {
		log.Fatalf("Error creating settings store: %s", err)
	}
	defer settingsCleanup()

	settingsReader := settings.NewReader(settingsStore, vault, conf.SiteName)
	settings.NewWebService(settingsStore, settingsReader, nower).RegisterEndpoints(c, router)

	formStore, formCleanup, err := mystore.New[formapi.PaymentFormConfig](c)
	if err != nil {
		log.Fatalf("Error creating payment form store: %s", err)
	}
	defer formCleanup()

	statsStore, statsCleanup, err := mystore.New[forms.FormStats](c)
	if err != nil {
		log.Fatalf("Error creating form statistics store: %s", err)
	}
	defer statsCleanup()

	err = forms.NewWebService(formStore, statsStore, settingsReader, nower, uuider, publisher, pubsub).RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering payment form endpoints: %s", err)
	}

	orderStore, orderCleanup, err := mystore.New[checkout.Order](c)
	if err != nil {
		log.Fatalf("Error creating order store: %s", err)
	}
	defer orderCleanup()

	payer, catalog := paymentProvider(conf, settingsReader)
	limiter := myhttp.NewRateLimiter(conf.PublicRateLimit, conf.PublicRateBurst)
	checkout.NewWebService(formStore, orderStore, catalog, settingsReader, payer, nower, uuider, publisher, limiter).RegisterEndpoints(c, router)

	warmup.NewService(settingsReader).RegisterEndpoints(c, router)

	dispatchLocally(router, queue, pubsub)

	startWebServerBlocking(router, conf.HttpAddr)
}

// implemented by the in-process queue and pubsub that are used outside google cloud
type localDispatcher interface {
	DispatchTo(handler http.Handler)
}

func dispatchLocally(handler http.Handler, infra ...any) {
	for _, i := range infra {
		if d, ok := i.(localDispatcher); ok {
			d.DispatchTo(handler)
		}
	}
}

func paymentProvider(conf Config, keys plans.KeyProvider) (checkout.Payer, plans.Catalog) {
	if conf.FakeStripe {
		log.Printf("Using fake stripe")
		fake := fakepayer.New()
		return fake, fake
	}
	return checkout.NewPayer(), plans.NewStripeCatalog(keys)
}

// seedVault stores the configured stripe keys; modes without a publishable key keep what was stored before
func seedVault(c context.Context, vault myvault.VaultReadWriter, conf Config) error {
	configured := []myvault.Keys{
		{
			Mode:           myvault.ModeTest,
			PublishableKey: conf.StripeTestPublishableKey,
			SecretKey:      conf.StripeTestSecretKey,
			WebhookSecret:  conf.StripeTestWebhookSecret,
		},
		{
			Mode:           myvault.ModeLive,
			PublishableKey: conf.StripeLivePublishableKey,
			SecretKey:      conf.StripeLiveSecretKey,
			WebhookSecret:  conf.StripeLiveWebhookSecret,
		},
	}

	for _, keys := range configured {
		if keys.PublishableKey == "" {
			continue
		}
		err := vault.Put(c, keys.Mode, keys)
		if err != nil {
			return fmt.Errorf("error storing %s keys: %s", keys.Mode, err)
		}
	}
	return nil
}

func startWebServerBlocking(router *mux.Router, addr string) {
	// App Engine dictates the port
	if port := os.Getenv("PORT"); port != "" {
		addr = fmt.Sprintf(":%s", port)
	}

	log.Printf("Starting webserver on %s", addr)
	err := http.ListenAndServe(addr, router)
	if err != nil {
		log.Fatalf("Error starting webserver on %s: %s", addr, err)
	}
}
