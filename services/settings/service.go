package settings

import (
	"context"
	"fmt"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/services/formapi"
)

type service struct {
	store  mystore.Store[Settings]
	reader Reader
	nower  mytime.Nower
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Settings], reader Reader, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		store:  store,
		reader: reader,
		nower:  nower,
		logger: logger,
	}
}

func (s *service) get(c context.Context) (Settings, error) {
	return s.reader.GetSettings(c)
}

func (s *service) put(c context.Context, settings Settings) (Settings, error) {
	s.logger.Log(c, settingsUID, mylog.SeverityInfo, "Update settings (test-mode:%v, taxes:%v)", settings.TestMode, settings.EnableTaxes)

	err := formapi.Validate(settings)
	if err != nil {
		return Settings{}, err
	}

	now := s.nower.Now()
	settings.LastModified = &now

	err = s.store.Put(c, settingsUID, settings)
	if err != nil {
		return Settings{}, myerrors.NewInternalError(fmt.Errorf("error storing settings: %s", err))
	}

	return settings, nil
}
