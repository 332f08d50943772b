package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/paymentforms/lib/mymoney"
	"github.com/MarcGrol/paymentforms/services/formapi"
)

var hundred = decimal.NewFromInt(100)

// AmountInput is what the customer entered or selected on the checkout page
type AmountInput struct {
	CustomAmount     string
	CustomPlanAmount string
	SelectedPlan     string
	Recurring        bool
}

func AmountInputFromSubmission(submission formapi.Submission) AmountInput {
	return AmountInput{
		CustomAmount:     submission.CustomAmount,
		CustomPlanAmount: submission.CustomPlanAmount,
		SelectedPlan:     submission.MultiPlan,
		Recurring:        submission.Recurring(),
	}
}

// FinalAmount is the outcome of the amount calculation, in major units
type FinalAmount struct {
	Base       decimal.Decimal
	Fee        decimal.Decimal
	Tax        decimal.Decimal
	TaxApplied bool
	Final      decimal.Decimal
	Currency   string
}

func (a FinalAmount) MinorUnits() int64 {
	return mymoney.MinorUnits(a.Final, a.Currency)
}

// CalculateFinalAmount computes what the customer pays for a rendered payment form. Input that
// does not parse as a positive number leaves the configured amount in place.
//
// The setup fee is part of the taxed base but is added to the final amount only once:
// tax = round2(rate/100 * (base + fee)), final = base + tax + fee.
func CalculateFinalAmount(payload formapi.PublicCheckoutPayload, input AmountInput) FinalAmount {
	base := decimal.NewFromFloat(payload.Stripe.Amount)
	fee := decimal.Zero
	currency := payload.Stripe.Currency
	isRecurring := false

	switch {
	case !payload.EnableSubscriptions:
		if payload.AmountType == formapi.AmountTypeCustom {
			isRecurring = input.Recurring
			if custom, ok := mymoney.ParsePositiveAmount(input.CustomAmount); ok {
				base = custom
			}
		}

	case payload.SubscriptionType == formapi.SubscriptionTypeSinglePlan:
		if payload.SingleSetupFee > 0 {
			fee = decimal.NewFromFloat(payload.SingleSetupFee)
		}
		if payload.EnableCustomPlanAmount {
			if custom, ok := mymoney.ParsePositiveAmount(input.CustomPlanAmount); ok {
				base = custom
			}
		}

	default:
		plan, found := payload.MultiplePlansAmounts[input.SelectedPlan]
		if found {
			currency = plan.Currency
			if plan.Amount > 0 {
				base = decimal.NewFromFloat(plan.Amount)
			}
		}
		if setupFee, found := payload.SetupFees[input.SelectedPlan]; found && setupFee > 0 {
			fee = decimal.NewFromFloat(setupFee)
		}
	}

	result := FinalAmount{
		Base:     base,
		Fee:      fee,
		Tax:      decimal.Zero,
		Currency: currency,
	}

	if (payload.ApplyTax || isRecurring) && payload.EnableTaxes {
		result.Tax = decimal.NewFromFloat(payload.Tax).Div(hundred).Mul(base.Add(fee)).Round(2)
		result.TaxApplied = true
	}

	result.Final = base.Add(result.Tax).Add(fee)

	return result
}

// TaxLabel is the line shown below the amount, like "Tax Amount: $12.00"
func TaxLabel(payload formapi.PublicCheckoutPayload, amount FinalAmount) string {
	if !amount.TaxApplied {
		return ""
	}
	return fmt.Sprintf("%s: %s%s", payload.TaxLabel, payload.CurrencySymbol, amount.Tax.StringFixed(2))
}
