package mylog

import (
	"context"
	"os"
	"strings"
)

type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

var severityRanks = map[Severity]int{
	SeverityDebug: 0,
	SeverityInfo:  1,
	SeverityWarn:  2,
	SeverityError: 3,
}

// New creates a logger for the named component; the backend is chosen at init-time
var New func(name string) Logger

type Logger interface {
	Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any)
}

// ParseSeverity is lenient: unknown values yield DEBUG, "WARNING" is accepted for WARN
func ParseSeverity(s string) Severity {
	severity := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if severity == "WARNING" {
		return SeverityWarn
	}
	if _, known := severityRanks[severity]; !known {
		return SeverityDebug
	}
	return severity
}

func minSeverityFromEnv() Severity {
	return ParseSeverity(os.Getenv("LOG_LEVEL"))
}

func (s Severity) enabled(min Severity) bool {
	return severityRanks[s] >= severityRanks[min]
}

// cloudName is the name cloud logging uses for this severity
func (s Severity) cloudName() string {
	if s == SeverityWarn {
		return "WARNING"
	}
	if _, known := severityRanks[s]; !known {
		return string(SeverityInfo)
	}
	return string(s)
}
