package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context this (used by mylog)
type CtxTraceContext struct{}

// CtxUserEmail is a context key for the email of the authenticated visitor
type CtxUserEmail struct{}

// ContextFromHTTPRequest derives a context from the request, carrying the cloud trace and the
// email-address forwarded by an authenticating proxy in front of this service.
func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")

	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		trace = fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	ctx := context.WithValue(r.Context(), CtxTraceContext{}, trace)
	ctx = context.WithValue(ctx, CtxUserEmail{}, strings.TrimSpace(r.Header.Get("X-Forwarded-Email")))

	return ctx
}

func TraceFromContext(c context.Context) string {
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}

func UserEmailFromContext(c context.Context) string {
	email, _ := c.Value(CtxUserEmail{}).(string)
	return email
}
