package forms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mypubsub"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/formevents"
	"github.com/MarcGrol/paymentforms/services/settings"
)

type service struct {
	formStore  mystore.Store[formapi.PaymentFormConfig]
	statsStore mystore.Store[FormStats]
	settings   settings.Reader
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	publisher  mypublisher.Publisher
	pubsub     mypubsub.PubSub
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(formStore mystore.Store[formapi.PaymentFormConfig], statsStore mystore.Store[FormStats], settingsReader settings.Reader,
	nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher, pubsub mypubsub.PubSub, logger mylog.Logger) *service {
	return &service{
		formStore:  formStore,
		statsStore: statsStore,
		settings:   settingsReader,
		nower:      nower,
		uuider:     uuider,
		publisher:  pub,
		pubsub:     pubsub,
		logger:     logger,
	}
}

func normalize(form formapi.PaymentFormConfig) formapi.PaymentFormConfig {
	form.Name = strings.TrimSpace(form.Name)
	form.Handle = strings.TrimSpace(form.Handle)
	form.Currency = strings.ToUpper(strings.TrimSpace(form.Currency))
	if form.EnableSubscriptions && form.SubscriptionStyle == "" {
		form.SubscriptionStyle = formapi.SubscriptionStyleRadio
	}
	// shipping is only collected together with billing
	if form.EnableShippingAddress {
		form.EnableBillingAddress = true
	}
	return form
}

// nameTaken runs outside of the transaction: datastore only allows ancestor queries within one.
func (s *service) nameTaken(c context.Context, name string, exceptUID string) (bool, error) {
	forms, err := s.formStore.Query(c, []mystore.Filter{{Field: "Name", Compare: "=", Value: name}}, "")
	if err != nil {
		return false, myerrors.NewInternalError(fmt.Errorf("error checking name %s: %s", name, err))
	}
	for _, f := range forms {
		if f.UID != exceptUID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) create(c context.Context, form formapi.PaymentFormConfig) (formapi.PaymentFormConfig, error) {
	form = normalize(form)

	s.logger.Log(c, form.Handle, mylog.SeverityInfo, "Create payment form %s", form.Handle)

	globalSettings, err := s.settings.GetSettings(c)
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}
	if form.Currency == "" {
		form.Currency = globalSettings.CurrencyOrDefault()
	}
	if form.ReturnURL == "" {
		form.ReturnURL = globalSettings.ReturnURL
	}
	if form.Quantity == 0 && !form.HasUnlimitedStock {
		form.HasUnlimitedStock = true
	}

	err = formapi.Validate(form)
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}

	taken, err := s.nameTaken(c, form.Name, "")
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}
	if taken {
		return formapi.PaymentFormConfig{}, myerrors.NewConflictError(fmt.Errorf("payment form with name %s already exists", form.Name))
	}

	form.UID = s.uuider.Create()
	form.CreatedAt = s.nower.Now()

	err = s.formStore.RunInTransaction(c, func(c context.Context) error {
		_, exists, err := s.formStore.Get(c, form.Handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", form.Handle, err))
		}
		if exists {
			return myerrors.NewConflictError(fmt.Errorf("payment form with handle %s already exists", form.Handle))
		}

		err = s.formStore.Put(c, form.Handle, form)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing payment form %s: %s", form.Handle, err))
		}

		err = s.publisher.Publish(c, formevents.TopicName, formevents.PaymentFormSaved{
			UID:                 form.UID,
			Handle:              form.Handle,
			Name:                form.Name,
			Currency:            form.Currency,
			EnableSubscriptions: form.EnableSubscriptions,
			Created:             true,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}

	return form, nil
}

func (s *service) update(c context.Context, handle string, form formapi.PaymentFormConfig) (formapi.PaymentFormConfig, error) {
	form = normalize(form)
	if form.Handle == "" {
		form.Handle = handle
	}

	s.logger.Log(c, handle, mylog.SeverityInfo, "Update payment form %s", handle)

	err := formapi.Validate(form)
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}

	existing, err := s.get(c, handle)
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}

	taken, err := s.nameTaken(c, form.Name, existing.UID)
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}
	if taken {
		return formapi.PaymentFormConfig{}, myerrors.NewConflictError(fmt.Errorf("payment form with name %s already exists", form.Name))
	}

	now := s.nower.Now()

	err = s.formStore.RunInTransaction(c, func(c context.Context) error {
		current, found, err := s.formStore.Get(c, handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", handle, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("payment form with handle %s not found", handle))
		}

		form.UID = current.UID
		form.CreatedAt = current.CreatedAt
		form.LastModified = &now

		if form.Handle != handle {
			_, exists, err := s.formStore.Get(c, form.Handle)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", form.Handle, err))
			}
			if exists {
				return myerrors.NewConflictError(fmt.Errorf("payment form with handle %s already exists", form.Handle))
			}
			err = s.formStore.Delete(c, handle)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error deleting payment form %s: %s", handle, err))
			}
		}

		err = s.formStore.Put(c, form.Handle, form)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing payment form %s: %s", form.Handle, err))
		}

		err = s.publisher.Publish(c, formevents.TopicName, formevents.PaymentFormSaved{
			UID:                 form.UID,
			Handle:              form.Handle,
			PreviousHandle:      handle,
			Name:                form.Name,
			Currency:            form.Currency,
			EnableSubscriptions: form.EnableSubscriptions,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return formapi.PaymentFormConfig{}, err
	}

	return form, nil
}

func (s *service) get(c context.Context, handle string) (formapi.PaymentFormConfig, error) {
	form, found, err := s.formStore.Get(c, handle)
	if err != nil {
		return formapi.PaymentFormConfig{}, myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", handle, err))
	}
	if !found {
		return formapi.PaymentFormConfig{}, myerrors.NewNotFoundError(fmt.Errorf("payment form with handle %s not found", handle))
	}
	return form, nil
}

func (s *service) list(c context.Context) ([]formapi.PaymentFormConfig, error) {
	forms, err := s.formStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching payment forms: %s", err))
	}

	sort.Slice(forms, func(i, j int) bool {
		return forms[i].CreatedAt.After(forms[j].CreatedAt)
	})

	return forms, nil
}

func (s *service) delete(c context.Context, handle string) error {
	s.logger.Log(c, handle, mylog.SeverityInfo, "Delete payment form %s", handle)

	return s.formStore.RunInTransaction(c, func(c context.Context) error {
		form, found, err := s.formStore.Get(c, handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching payment form %s: %s", handle, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("payment form with handle %s not found", handle))
		}

		err = s.formStore.Delete(c, handle)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error deleting payment form %s: %s", handle, err))
		}

		err = s.publisher.Publish(c, formevents.TopicName, formevents.PaymentFormDeleted{
			UID:    form.UID,
			Handle: handle,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
}

func (s *service) stats(c context.Context, handle string) (FormStats, error) {
	_, err := s.get(c, handle)
	if err != nil {
		return FormStats{}, err
	}

	stats, found, err := s.statsStore.Get(c, handle)
	if err != nil {
		return FormStats{}, myerrors.NewInternalError(fmt.Errorf("error fetching stats of %s: %s", handle, err))
	}
	if !found {
		return FormStats{Handle: handle}, nil
	}
	return stats, nil
}
