package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/myhttpclient"
)

//go:generate mockgen -source=payer.go -package checkout -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	CreatePaymentMethod(c context.Context, params stripe.PaymentMethodParams) (stripe.PaymentMethod, error)
	CreateCustomer(c context.Context, params stripe.CustomerParams) (stripe.Customer, error)
	CreatePaymentIntent(c context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error)
	CreatePlan(c context.Context, params stripe.PlanParams) (stripe.Plan, error)
	CreateInvoiceItem(c context.Context, params stripe.InvoiceItemParams) (stripe.InvoiceItem, error)
	CreateSubscription(c context.Context, params stripe.SubscriptionParams) (stripe.Subscription, error)
}

type stripePayer struct {
	sync.Mutex
	backends *stripe.Backends
	api      *client.API
}

func NewPayer() Payer {
	config := &stripe.BackendConfig{HTTPClient: myhttpclient.New("stripe")}
	return &stripePayer{
		backends: &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, config),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, config),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, config),
		},
	}
}

func (p *stripePayer) UseAPIKey(key string) {
	p.Lock()
	defer p.Unlock()

	p.api = client.New(key, p.backends)
}

func (p *stripePayer) client() (*client.API, error) {
	p.Lock()
	defer p.Unlock()

	if p.api == nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("no stripe api key configured"))
	}
	return p.api, nil
}

func (p *stripePayer) CreatePaymentMethod(c context.Context, params stripe.PaymentMethodParams) (stripe.PaymentMethod, error) {
	api, err := p.client()
	if err != nil {
		return stripe.PaymentMethod{}, err
	}
	params.Context = c

	pm, err := api.PaymentMethods.New(&params)
	if err != nil {
		return stripe.PaymentMethod{}, ProviderError("payment method", err)
	}
	return *pm, nil
}

func (p *stripePayer) CreateCustomer(c context.Context, params stripe.CustomerParams) (stripe.Customer, error) {
	api, err := p.client()
	if err != nil {
		return stripe.Customer{}, err
	}
	params.Context = c

	cust, err := api.Customers.New(&params)
	if err != nil {
		return stripe.Customer{}, ProviderError("customer", err)
	}
	return *cust, nil
}

func (p *stripePayer) CreatePaymentIntent(c context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
	api, err := p.client()
	if err != nil {
		return stripe.PaymentIntent{}, err
	}
	params.Context = c

	pi, err := api.PaymentIntents.New(&params)
	if err != nil {
		return stripe.PaymentIntent{}, ProviderError("payment intent", err)
	}
	return *pi, nil
}

func (p *stripePayer) CreatePlan(c context.Context, params stripe.PlanParams) (stripe.Plan, error) {
	api, err := p.client()
	if err != nil {
		return stripe.Plan{}, err
	}
	params.Context = c

	pl, err := api.Plans.New(&params)
	if err != nil {
		return stripe.Plan{}, ProviderError("plan", err)
	}
	return *pl, nil
}

func (p *stripePayer) CreateInvoiceItem(c context.Context, params stripe.InvoiceItemParams) (stripe.InvoiceItem, error) {
	api, err := p.client()
	if err != nil {
		return stripe.InvoiceItem{}, err
	}
	params.Context = c

	item, err := api.InvoiceItems.New(&params)
	if err != nil {
		return stripe.InvoiceItem{}, ProviderError("invoice item", err)
	}
	return *item, nil
}

func (p *stripePayer) CreateSubscription(c context.Context, params stripe.SubscriptionParams) (stripe.Subscription, error) {
	api, err := p.client()
	if err != nil {
		return stripe.Subscription{}, err
	}
	params.Context = c

	sub, err := api.Subscriptions.New(&params)
	if err != nil {
		return stripe.Subscription{}, ProviderError("subscription", err)
	}
	return *sub, nil
}

// ProviderError maps declined cards to a tokenization error the customer can act upon
func ProviderError(what string, err error) error {
	stripeErr, ok := err.(*stripe.Error)
	if ok && stripeErr.Type == stripe.ErrorTypeCard {
		return tokenizationError("%s", stripeErr.Msg)
	}
	if ok && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
		return myerrors.NewInvalidInputError(fmt.Errorf("error creating stripe %s: %s", what, err))
	}
	return myerrors.NewInternalError(fmt.Errorf("error creating stripe %s: %s", what, err))
}
