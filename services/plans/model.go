package plans

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/paymentforms/lib/mymoney"
)

type Plan struct {
	ID              string
	Nickname        string
	Currency        string
	AmountMinor     int64
	Interval        string
	IntervalCount   int64
	TrialPeriodDays int64
	Active          bool
}

// PlanAmount is the major-unit price of a plan for the given quantity
func PlanAmount(plan Plan, quantity int) decimal.Decimal {
	if quantity <= 0 {
		quantity = 1
	}
	unit := mymoney.ToMajorUnits(decimal.NewFromInt(plan.AmountMinor), plan.Currency)
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

func DefaultPlanName(plan Plan) string {
	if plan.Nickname != "" {
		return plan.Nickname
	}

	places := int32(2)
	if mymoney.IsZeroDecimal(plan.Currency) {
		places = 0
	}
	price := mymoney.CurrencySymbol(plan.Currency, "en") + PlanAmount(plan, 1).StringFixed(places)

	if plan.IntervalCount <= 1 {
		return fmt.Sprintf("%s every %s", price, plan.Interval)
	}
	return fmt.Sprintf("%s every %d %ss", price, plan.IntervalCount, plan.Interval)
}
