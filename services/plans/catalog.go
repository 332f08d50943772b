package plans

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/plan"

	"github.com/MarcGrol/paymentforms/lib/myhttpclient"
	"github.com/MarcGrol/paymentforms/lib/mylog"
)

//go:generate mockgen -source=catalog.go -package plans -destination catalog_mock.go Catalog KeyProvider
type Catalog interface {
	GetPlan(c context.Context, planID string) (Plan, bool, error)
}

type KeyProvider interface {
	SecretKey(c context.Context) (string, error)
}

type stripeCatalog struct {
	keys    KeyProvider
	backend stripe.Backend
	logger  mylog.Logger
}

func NewStripeCatalog(keys KeyProvider) Catalog {
	return &stripeCatalog{
		keys:    keys,
		backend: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{HTTPClient: myhttpclient.New("plans")}),
		logger:  mylog.New("plans"),
	}
}

func (cat *stripeCatalog) GetPlan(c context.Context, planID string) (Plan, bool, error) {
	key, err := cat.keys.SecretKey(c)
	if err != nil {
		return Plan{}, false, fmt.Errorf("error fetching api key: %s", err)
	}

	client := plan.Client{B: cat.backend, Key: key}
	p, err := client.Get(planID, &stripe.PlanParams{Params: stripe.Params{Context: c}})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && (stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
			cat.logger.Log(c, planID, mylog.SeverityWarn, "Plan %s not found", planID)
			return Plan{}, false, nil
		}
		return Plan{}, false, fmt.Errorf("error fetching plan %s: %s", planID, err)
	}

	return fromStripe(p), true, nil
}

func fromStripe(p *stripe.Plan) Plan {
	return Plan{
		ID:              p.ID,
		Nickname:        p.Nickname,
		Currency:        strings.ToUpper(string(p.Currency)),
		AmountMinor:     p.Amount,
		Interval:        string(p.Interval),
		IntervalCount:   p.IntervalCount,
		TrialPeriodDays: p.TrialPeriodDays,
		Active:          p.Active,
	}
}
