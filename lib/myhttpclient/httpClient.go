package myhttpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MarcGrol/paymentforms/lib/mylog"
)

const (
	timeout = 20 * time.Second
)

// New returns a client that logs every outgoing request and its outcome
func New(name string) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			next:   http.DefaultTransport,
			logger: mylog.New(name),
		},
	}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger mylog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := req.Context()
	label := fmt.Sprintf("%s %s", req.Method, req.URL.Path)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Log(c, label, mylog.SeverityError, "HTTP request: %s %s failed after %s: %s", req.Method, req.URL.Redacted(), time.Since(start), err)
		return nil, err
	}

	severity := mylog.SeverityInfo
	if resp.StatusCode >= http.StatusBadRequest {
		severity = mylog.SeverityWarn
	}
	t.logger.Log(c, label, severity, "HTTP request: %s %s -> %d (%s)", req.Method, req.URL.Redacted(), resp.StatusCode, time.Since(start))

	return resp, nil
}
