package myvault

import (
	"context"
)

const (
	ModeTest = "test"
	ModeLive = "live"
)

// Keys holds the stripe key material of one mode. Only the publishable key may ever reach a browser.
type Keys struct {
	Mode           string
	PublishableKey string
	SecretKey      string `datastore:",noindex"`
	WebhookSecret  string `datastore:",noindex"`
}

func ModeFor(testMode bool) string {
	if testMode {
		return ModeTest
	}
	return ModeLive
}

//go:generate mockgen -source=api.go -package myvault -destination vault_mock.go VaultReader VaultReadWriter
type VaultReader interface {
	Get(c context.Context, mode string) (Keys, bool, error)
}

type VaultReadWriter interface {
	Get(c context.Context, mode string) (Keys, bool, error)
	Put(c context.Context, mode string, value Keys) error
}
