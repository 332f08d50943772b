package mylog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudLogger
		// Prefix text prevents the message from being parsed as JSON
		log.SetFlags(0)
	}
}

type structuredLogger struct {
	componentName string
	minSeverity   Severity
	print         func(v ...any)
}

func newGcloudLogger(componentName string) Logger {
	return structuredLogger{
		componentName: componentName,
		minSeverity:   minSeverityFromEnv(),
		print:         log.Println,
	}
}

func (l structuredLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	if !severity.enabled(l.minSeverity) {
		return
	}
	l.print(l.entry(ctx, traceLabel, severity, fmt.Sprintf(format, a...)).String())
}

func (l structuredLogger) entry(ctx context.Context, traceLabel string, severity Severity, msg string) entry {
	labels := map[string]string{}
	if traceLabel != "" {
		labels["aggregate"] = traceLabel
	}
	// admin requests arrive through an authenticating proxy
	if email := mycontext.UserEmailFromContext(ctx); email != "" {
		labels["user"] = email
	}

	return entry{
		Component: l.componentName,
		Labels:    labels,
		Trace:     mycontext.TraceFromContext(ctx),
		Severity:  severity.cloudName(),
		Message:   l.componentName + ": " + msg,
	}
}

type entry struct {
	Component string            `json:"component,omitempty"`
	Labels    map[string]string `json:"logging.googleapis.com/labels,omitempty"`
	Trace     string            `json:"logging.googleapis.com/trace,omitempty"`
	Severity  string            `json:"severity,omitempty"`
	Message   string            `json:"message"`
}

func (e entry) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		log.Printf("error marshalling log record: %v", err)
	}

	return string(out)
}
