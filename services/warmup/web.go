package warmup

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
	"github.com/MarcGrol/paymentforms/lib/myhttp"
	"github.com/MarcGrol/paymentforms/lib/mylog"
	"github.com/MarcGrol/paymentforms/services/settings"
)

type webService struct {
	logger   mylog.Logger
	settings settings.Reader
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(settingsReader settings.Reader) *webService {
	return &webService{
		logger:   mylog.New("warmup"),
		settings: settingsReader,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

// warmupPage loads the settings and the keys of the active mode before the first visitor arrives
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		globalSettings, err := s.settings.GetSettings(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		_, err = s.settings.PublishableKey(c)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		s.logger.Log(c, "", mylog.SeverityInfo, "Warmed up %s (test-mode: %v)", globalSettings.SiteName, globalSettings.TestMode)

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
