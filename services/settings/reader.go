package settings

import (
	"context"
	"fmt"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/myvault"
)

//go:generate mockgen -source=reader.go -package settings -destination reader_mock.go Reader
type Reader interface {
	GetSettings(c context.Context) (Settings, error)
	PublishableKey(c context.Context) (string, error)
	SecretKey(c context.Context) (string, error)
	WebhookSecret(c context.Context) (string, error)
}

type reader struct {
	store    mystore.Store[Settings]
	vault    myvault.VaultReader
	siteName string
	logger   mylog.Logger
}

// NewReader gives access to the settings and to the stripe keys of the mode these settings select
func NewReader(store mystore.Store[Settings], vault myvault.VaultReader, siteName string) Reader {
	return &reader{
		store:    store,
		vault:    vault,
		siteName: siteName,
		logger:   mylog.New("settings"),
	}
}

func (r *reader) GetSettings(c context.Context) (Settings, error) {
	s, found, err := r.store.Get(c, settingsUID)
	if err != nil {
		return Settings{}, myerrors.NewInternalError(fmt.Errorf("error fetching settings: %s", err))
	}
	if !found {
		return DefaultSettings(r.siteName), nil
	}
	if s.SiteName == "" {
		s.SiteName = r.siteName
	}
	return s, nil
}

func (r *reader) keys(c context.Context) (myvault.Keys, error) {
	s, err := r.GetSettings(c)
	if err != nil {
		return myvault.Keys{}, err
	}
	mode := myvault.ModeFor(s.TestMode)
	keys, found, err := r.vault.Get(c, mode)
	if err != nil {
		return myvault.Keys{}, myerrors.NewInternalError(fmt.Errorf("error fetching %s keys: %s", mode, err))
	}
	if !found {
		r.logger.Log(c, mode, mylog.SeverityWarn, "No stripe keys configured for mode %s", mode)
		return myvault.Keys{}, myerrors.NewUnavailableError(fmt.Errorf("no stripe keys configured for mode %s", mode))
	}
	return keys, nil
}

func (r *reader) PublishableKey(c context.Context) (string, error) {
	keys, err := r.keys(c)
	if err != nil {
		return "", err
	}
	return keys.PublishableKey, nil
}

func (r *reader) SecretKey(c context.Context) (string, error) {
	keys, err := r.keys(c)
	if err != nil {
		return "", err
	}
	return keys.SecretKey, nil
}

func (r *reader) WebhookSecret(c context.Context) (string, error) {
	keys, err := r.keys(c)
	if err != nil {
		return "", err
	}
	return keys.WebhookSecret, nil
}
