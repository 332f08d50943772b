package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mypubsub"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/checkoutevents"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/settings"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(formStore mystore.Store[formapi.PaymentFormConfig], statsStore mystore.Store[FormStats], settingsReader settings.Reader,
	nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher, pubsub mypubsub.PubSub) *webService {
	logger := mylog.New("forms")
	return &webService{
		logger:  logger,
		service: newService(formStore, statsStore, settingsReader, nower, uuider, pub, pubsub, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/paymentform", s.listForms()).Methods("GET")
	router.HandleFunc("/paymentform", s.createForm()).Methods("POST")
	router.HandleFunc("/paymentform/{handle}", s.getForm()).Methods("GET")
	router.HandleFunc("/paymentform/{handle}", s.updateForm()).Methods("PUT")
	router.HandleFunc("/paymentform/{handle}", s.deleteForm()).Methods("DELETE")
	router.HandleFunc("/paymentform/{handle}/stats", s.getStats()).Methods("GET")

	// Order counters are fed by checkout events
	router.HandleFunc("/api/paymentform/event", s.handleEventEnvelope()).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) listForms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		forms, err := s.service.list(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, forms)
	}
}

func (s *webService) createForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := parseForm(r)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		form, err = s.service.create(c, form)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, form)
	}
}

func (s *webService) getForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := s.service.get(c, mux.Vars(r)["handle"])
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, form)
	}
}

func (s *webService) updateForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := parseForm(r)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		form, err = s.service.update(c, mux.Vars(r)["handle"], form)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, form)
	}
}

func (s *webService) deleteForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.service.delete(c, mux.Vars(r)["handle"])
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully deleted payment form",
		})
	}
}

func (s *webService) getStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		stats, err := s.service.stats(c, mux.Vars(r)["handle"])
		if err != nil {
			errorWriter.WriteError(c, w, 8, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, stats)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

func parseForm(r *http.Request) (formapi.PaymentFormConfig, error) {
	form := formapi.PaymentFormConfig{}
	err := json.NewDecoder(r.Body).Decode(&form)
	if err != nil {
		return form, myerrors.NewInvalidInputError(fmt.Errorf("error parsing payment form: %s", err))
	}
	return form, nil
}
