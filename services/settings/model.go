package settings

import (
	"time"

	"github.com/MarcGrol/paymentforms/lib/mymoney"
	"github.com/MarcGrol/paymentforms/services/formapi"
)

const settingsUID = "global"

type Settings struct {
	TestMode         bool
	EnableTaxes      bool
	Tax              float64              `validate:"gte=0,lte=100"`
	TaxType          formapi.DiscountType `validate:"oneof=0 1"`
	DefaultCurrency  string               `validate:"omitempty,len=3,alpha"`
	ReturnURL        string               `validate:"max=1024"`
	CurrentUserEmail bool
	SiteName         string `validate:"max=255"`
	LastModified     *time.Time
}

func DefaultSettings(siteName string) Settings {
	return Settings{
		TestMode:        true,
		TaxType:         formapi.DiscountTypeRate,
		DefaultCurrency: mymoney.DefaultCurrency,
		SiteName:        siteName,
	}
}

func (s Settings) TaxTypeName() string {
	switch s.TaxType {
	case formapi.DiscountTypeRate:
		return "tax_rate"
	case formapi.DiscountTypeAmount:
		return "rate"
	default:
		return ""
	}
}

func (s Settings) CurrencyOrDefault() string {
	if s.DefaultCurrency == "" {
		return mymoney.DefaultCurrency
	}
	return s.DefaultCurrency
}
