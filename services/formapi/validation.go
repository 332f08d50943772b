package formapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
)

var (
	handlePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return handlePattern.MatchString(fl.Field().String())
		})
		validate.RegisterStructValidation(paymentFormRules, PaymentFormConfig{})
	})
	return validate
}

func paymentFormRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(PaymentFormConfig)

	if f.DiscountType == DiscountTypeRate && f.Discount > 100 {
		sl.ReportError(f.Discount, "Discount", "Discount", "discountrate", "")
	}
	if !f.EnableCheckout && len(f.PaymentTypes) == 0 {
		sl.ReportError(f.PaymentTypes, "PaymentTypes", "PaymentTypes", "required_for_elements", "")
	}
	if f.EnableCheckout {
		for _, pt := range f.PaymentTypes {
			if pt != PaymentMethodCard {
				sl.ReportError(f.PaymentTypes, "PaymentTypes", "PaymentTypes", "card_only_for_checkout", "")
				break
			}
		}
	}
	if f.EnableShippingAddress && !f.EnableBillingAddress {
		sl.ReportError(f.EnableBillingAddress, "EnableBillingAddress", "EnableBillingAddress", "required_with_shipping", "")
	}
	if f.AmountType == AmountTypeCustom && f.MinimumAmount > 0 && f.Amount > 0 && f.Amount < f.MinimumAmount {
		sl.ReportError(f.Amount, "Amount", "Amount", "gte_minimum", "")
	}
	if f.IsSinglePlan() && !f.EnableCustomPlanAmount && f.SinglePlanID == "" {
		sl.ReportError(f.SinglePlanID, "SinglePlanID", "SinglePlanID", "required_for_single_plan", "")
	}
	if f.IsSinglePlan() && f.EnableCustomPlanAmount && f.CustomPlanInterval == "" {
		sl.ReportError(f.CustomPlanInterval, "CustomPlanInterval", "CustomPlanInterval", "required_for_custom_plan", "")
	}
	if f.IsMultiPlan() && len(f.MultiplePlans) == 0 {
		sl.ReportError(f.MultiplePlans, "MultiplePlans", "MultiplePlans", "required_for_multi_plan", "")
	}
	seen := map[string]bool{}
	for _, p := range f.MultiplePlans {
		if seen[p.PlanID] {
			sl.ReportError(f.MultiplePlans, "MultiplePlans", "MultiplePlans", "unique_plans", "")
			break
		}
		seen[p.PlanID] = true
	}
}

// Validate checks struct tags and cross-field rules. Failures are reported as one unprocessable error
// naming every offending field.
func Validate(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return myerrors.NewInvalidInputError(err)
	}
	problems := []string{}
	for _, fe := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return myerrors.NewUnprocessableError(fmt.Errorf("invalid input: %s", strings.Join(problems, ", ")))
}
