package formapi

import (
	"bytes"
	"strings"
	"text/template"
	"time"
)

const (
	DefaultButtonText         = "Pay with card"
	DefaultCheckoutButtonText = "Pay {{amount}}"
	DefaultCustomAmountLabel  = "Pay what you want:"
	DefaultSelectPlanLabel    = "Select a plan"
	DefaultTaxLabel           = "Tax Amount"
)

type AmountType int

const (
	AmountTypeFixed AmountType = iota
	AmountTypeCustom
)

type SubscriptionType int

const (
	SubscriptionTypeSinglePlan SubscriptionType = iota
	SubscriptionTypeMultiPlan
)

type SubscriptionStyle string

const (
	SubscriptionStyleRadio    SubscriptionStyle = "radio"
	SubscriptionStyleDropdown SubscriptionStyle = "dropdown"
)

// DiscountType is used for both the discount of a form and the tax of the settings
type DiscountType int

const (
	DiscountTypeRate DiscountType = iota
	DiscountTypeAmount
)

type PaymentMethod int

const (
	PaymentMethodCard   PaymentMethod = 1
	PaymentMethodIDEAL  PaymentMethod = 2
	PaymentMethodSOFORT PaymentMethod = 3
)

func (m PaymentMethod) String() string {
	switch m {
	case PaymentMethodCard:
		return "card"
	case PaymentMethodIDEAL:
		return "ideal"
	case PaymentMethodSOFORT:
		return "sofort"
	default:
		return "unknown"
	}
}

// NeedsToken tells whether the browser must tokenize a payment method before submitting
func (m PaymentMethod) NeedsToken() bool {
	return m == PaymentMethodCard
}

// PlanRef refers to a plan in the catalog, with the setup fee charged once when subscribing to it
type PlanRef struct {
	PlanID   string  `validate:"required"`
	SetupFee float64 `validate:"gte=0"`
}

type PaymentFormConfig struct {
	UID            string
	Name           string `validate:"required,max=255"`
	Handle         string `validate:"required,max=255,handle"`
	CompanyName    string `validate:"max=255"`
	Enabled        bool
	EnableCheckout bool
	PaymentTypes   []PaymentMethod `validate:"dive,oneof=1 2 3"`
	Currency       string          `validate:"omitempty,len=3,alpha"`
	Language       string          `validate:"max=16"`

	Amount            float64    `validate:"gte=0"`
	AmountType        AmountType `validate:"oneof=0 1"`
	MinimumAmount     float64    `validate:"gte=0"`
	CustomAmountLabel string

	Quantity          int `validate:"gte=0"`
	HasUnlimitedStock bool
	CustomerQuantity  bool
	SoldOutMessage    string

	DiscountType DiscountType `validate:"oneof=0 1"`
	Discount     float64      `validate:"gte=0"`

	ButtonText                  string
	PaymentButtonProcessingText string
	CheckoutButtonText          string
	ReturnURL                   string
	ButtonClass                 string

	EnableSubscriptions     bool
	SubscriptionType        SubscriptionType  `validate:"oneof=0 1"`
	SubscriptionStyle       SubscriptionStyle `validate:"omitempty,oneof=radio dropdown"`
	SelectPlanLabel         string
	SinglePlanID            string
	SinglePlanSetupFee      float64 `validate:"gte=0"`
	SinglePlanTrialPeriod   int     `validate:"gte=0"`
	EnableCustomPlanAmount  bool
	CustomPlanMinimumAmount float64   `validate:"gte=0"`
	CustomPlanDefaultAmount float64   `validate:"gte=0"`
	CustomPlanInterval      string    `validate:"omitempty,oneof=day week month year"`
	CustomPlanFrequency     int       `validate:"gte=0"`
	MultiplePlans           []PlanRef `validate:"dive"`

	EnableRecurringPayment bool
	RecurringPaymentType   string `validate:"omitempty,oneof=day week month year"`

	EnableBillingAddress  bool
	EnableShippingAddress bool
	VerifyZip             bool
	EnableRememberMe      bool
	LogoURL               string `validate:"omitempty,url"`

	EnableTemplateOverrides bool
	TemplateOverridesFolder string

	CreatedAt    time.Time
	LastModified *time.Time
}

// IsHostedCheckout is true for the provider overlay and false for widgets embedded in the page
func (f PaymentFormConfig) IsHostedCheckout() bool {
	return f.EnableCheckout
}

func (f PaymentFormConfig) IsMultiPlan() bool {
	return f.EnableSubscriptions && f.SubscriptionType == SubscriptionTypeMultiPlan
}

func (f PaymentFormConfig) IsSinglePlan() bool {
	return f.EnableSubscriptions && f.SubscriptionType == SubscriptionTypeSinglePlan
}

func (f PaymentFormConfig) DiscountTypeName() string {
	switch f.DiscountType {
	case DiscountTypeRate:
		return "discount_rate"
	case DiscountTypeAmount:
		return "discount_amount"
	default:
		return ""
	}
}

// DefaultPaymentMethod is the first configured method, card when none were configured
func (f PaymentFormConfig) DefaultPaymentMethod() PaymentMethod {
	if len(f.PaymentTypes) == 0 {
		return PaymentMethodCard
	}
	return f.PaymentTypes[0]
}

func (f PaymentFormConfig) AcceptsPaymentMethod(m PaymentMethod) bool {
	if len(f.PaymentTypes) == 0 {
		return m == PaymentMethodCard
	}
	for _, pt := range f.PaymentTypes {
		if pt == m {
			return true
		}
	}
	return false
}

func (f PaymentFormConfig) SetupFeeOf(planID string) (float64, bool) {
	for _, p := range f.MultiplePlans {
		if p.PlanID == planID {
			return p.SetupFee, true
		}
	}
	return 0, false
}

func (f PaymentFormConfig) InStock(quantity int) bool {
	return f.HasUnlimitedStock || f.Quantity >= quantity
}

// PaymentFormText renders the configured button text, falling back to the given default
func (f PaymentFormConfig) PaymentFormText(def string) string {
	if def == "" {
		def = DefaultButtonText
	}
	if f.ButtonText == "" {
		return def
	}
	return f.render(f.ButtonText)
}

func (f PaymentFormConfig) ProcessingText() string {
	if f.PaymentButtonProcessingText != "" {
		return f.render(f.PaymentButtonProcessingText)
	}
	return f.PaymentFormText("")
}

func (f PaymentFormConfig) CustomLabel() string {
	if f.CustomAmountLabel == "" {
		return DefaultCustomAmountLabel
	}
	return f.render(f.CustomAmountLabel)
}

func (f PaymentFormConfig) SelectPlanText() string {
	if f.SelectPlanLabel == "" {
		return DefaultSelectPlanLabel
	}
	return f.render(f.SelectPlanLabel)
}

// render expands references to form fields like {{.Name}}; text that does not parse is used literally
func (f PaymentFormConfig) render(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	tmpl, err := template.New("text").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}
	buf := bytes.Buffer{}
	err = tmpl.Execute(&buf, f)
	if err != nil {
		return text
	}
	return buf.String()
}
