package mylog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
)

var (
	baseOnce   sync.Once
	baseLogger *zap.SugaredLogger
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newStandardLogger
	}
}

type standardLogger struct {
	componentName string
	sugar         *zap.SugaredLogger
}

func newStandardLogger(componentName string) Logger {
	return standardLogger{
		componentName: componentName,
		sugar:         base().With("component", componentName),
	}
}

// base writes human readable lines to stderr and, when LOG_FILE is set, also to a rotated file
func base() *zap.SugaredLogger {
	baseOnce.Do(func() {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		syncers := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
		if filename := os.Getenv("LOG_FILE"); filename != "" {
			syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
				Filename:   filename,
				MaxSize:    50, // megabytes
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			}))
		}

		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(syncers...), minSeverityFromEnv().zapLevel())
		baseLogger = zap.New(core).Sugar()
	})
	return baseLogger
}

func (s Severity) zapLevel() zapcore.Level {
	switch s {
	case SeverityInfo:
		return zapcore.InfoLevel
	case SeverityWarn:
		return zapcore.WarnLevel
	case SeverityError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	keysAndValues := []any{"aggregate", traceLabel}
	if email := mycontext.UserEmailFromContext(ctx); email != "" {
		keysAndValues = append(keysAndValues, "user", email)
	}

	switch severity {
	case SeverityDebug:
		l.sugar.Debugw(msg, keysAndValues...)
	case SeverityWarn:
		l.sugar.Warnw(msg, keysAndValues...)
	case SeverityError:
		l.sugar.Errorw(msg, keysAndValues...)
	default:
		l.sugar.Infow(msg, keysAndValues...)
	}
}
