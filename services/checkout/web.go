package checkout

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/lib/mymoney"
	"github.com/MarcGrol/paymentforms/lib/mypublisher"
	"github.com/MarcGrol/paymentforms/lib/mystore"
	"github.com/MarcGrol/paymentforms/lib/mytime"
	"github.com/MarcGrol/paymentforms/lib/myuuid"
	"github.com/MarcGrol/paymentforms/services/formapi"
	"github.com/MarcGrol/paymentforms/services/plans"
	"github.com/MarcGrol/paymentforms/services/settings"
)

const maxWebhookBodySize = 65536

//go:embed templates
var templateFolder embed.FS
var (
	checkoutPageTemplate *template.Template
)

func init() {
	checkoutPageTemplate = template.Must(template.New("checkout.html").Funcs(template.FuncMap{
		"paymentMethodID": func(m formapi.PaymentMethod) int {
			return int(m)
		},
		"paymentMethodName": func(m formapi.PaymentMethod) string {
			switch m {
			case formapi.PaymentMethodIDEAL:
				return "iDEAL"
			case formapi.PaymentMethodSOFORT:
				return "SOFORT"
			default:
				return "Card"
			}
		},
	}).ParseFS(templateFolder, "templates/checkout.html"))
}

type webService struct {
	logger  mylog.Logger
	limiter *myhttp.RateLimiter
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(formStore mystore.Store[formapi.PaymentFormConfig], orderStore mystore.Store[Order], catalog plans.Catalog, settingsReader settings.Reader,
	payer Payer, nower mytime.Nower, uuider myuuid.UUIDer, pub mypublisher.Publisher, limiter *myhttp.RateLimiter) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		limiter: limiter,
		service: newService(formStore, orderStore, catalog, settingsReader, payer, nower, uuider, pub, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	// Endpoints that compose the checkout page
	router.HandleFunc("/paymentform/{handle}/checkout", s.checkoutPage()).Methods("GET")
	router.HandleFunc("/paymentform/{handle}/publicdata", s.publicData()).Methods("GET")
	router.HandleFunc("/paymentform/{handle}/amount", s.limiter.Limit(s.previewAmount())).Methods("POST")
	router.HandleFunc("/paymentform/{handle}/submit", s.limiter.Limit(s.submit())).Methods("POST")
	router.HandleFunc("/checkout/static/checkout.js", s.checkoutScript()).Methods("GET")

	// The bank redirects to this endpoint after iDEAL and SOFORT payments
	router.HandleFunc("/paymentform/{handle}/return/{orderUID}", s.finalizeRedirect()).Methods("GET")

	// Final notification called by Stripe at a later time
	router.HandleFunc("/stripe/webhook", s.webhookNotification()).Methods("POST")

	router.HandleFunc("/order", s.listOrders()).Methods("GET")
	router.HandleFunc("/order/{uid}", s.getOrder()).Methods("GET")
}

func (s *webService) checkoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		info, err := s.service.checkoutPage(c, mux.Vars(r)["handle"], r.URL.Query().Get("status"))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.WritePage(c, w, checkoutPageTemplate, info)
	}
}

func (s *webService) checkoutScript() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		script, err := templateFolder.ReadFile("templates/checkout.js")
		if err != nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewInternalError(fmt.Errorf("error reading script: %s", err)))
			return
		}

		errorWriter.WriteAsset(c, w, "application/javascript; charset=utf-8", script)
	}
}

func (s *webService) publicData() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		options, err := parsePayloadOptions(r)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		payload, err := s.service.publicData(c, mux.Vars(r)["handle"], options)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, payload)
	}
}

func (s *webService) previewAmount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		submission, err := formapi.NewSubmissionFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		preview, err := s.service.previewAmount(c, mux.Vars(r)["handle"], submission)
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, preview)
	}
}

func (s *webService) submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		submission, err := formapi.NewSubmissionFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 8, submissionError("%s", err))
			return
		}

		redirectURL, err := s.service.submit(c, mux.Vars(r)["handle"], submission, myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 9, err)
			return
		}

		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

func (s *webService) finalizeRedirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		vars := mux.Vars(r)

		redirectURL, err := s.service.finalizeRedirect(c, vars["handle"], vars["orderUID"], r.URL.Query().Get("redirect_status"))
		if err != nil {
			errorWriter.WriteError(c, w, 10, err)
			return
		}

		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
		if err != nil {
			errorWriter.WriteError(c, w, 11, myerrors.NewInvalidInputError(fmt.Errorf("error reading webhook: %s", err)))
			return
		}

		err = s.service.webhookNotification(c, payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			errorWriter.WriteError(c, w, 12, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed webhook",
		})
	}
}

func (s *webService) getOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		order, err := s.service.getOrder(c, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 13, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, order)
	}
}

func (s *webService) listOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		orders, err := s.service.listOrders(c, r.URL.Query().Get("form"))
		if err != nil {
			errorWriter.WriteError(c, w, 14, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, orders)
	}
}

func parsePayloadOptions(r *http.Request) (formapi.PayloadOptions, error) {
	query := r.URL.Query()

	options := formapi.PayloadOptions{
		Currency:    query.Get("currency"),
		Description: query.Get("description"),
		Logo:        query.Get("logo"),
	}

	if value := query.Get("amount"); value != "" {
		amount, ok := mymoney.ParseAmount(value)
		if !ok || amount.IsNegative() {
			return options, myerrors.NewInvalidInputErrorf("invalid amount %q", value)
		}
		f := amount.InexactFloat64()
		options.Amount = &f
	}

	if value := query.Get("quantity"); value != "" {
		quantity, err := strconv.Atoi(value)
		if err != nil {
			return options, myerrors.NewInvalidInputErrorf("invalid quantity %q", value)
		}
		options.Quantity = quantity
	}

	if value := query.Get("calculateFinalAmount"); value != "" {
		calculate, err := strconv.ParseBool(value)
		if err != nil {
			return options, myerrors.NewInvalidInputErrorf("invalid calculateFinalAmount %q", value)
		}
		options.CalculateFinalAmount = &calculate
	}

	return options, nil
}
