package sentry_integration

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/types"
)

// Init configures the global hub. It is a no-op when no DSN is configured.
func Init(cfg *config.SentryConfig) error {
	if cfg == nil {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       cfg.SampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		Environment:      cfg.Environment,
		Release:          config.Version,
	})
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

func CaptureCurrentHubException(err error, level sentry.Level) {
	CaptureException(sentry.CurrentHub(), err, level)
}

// CaptureException reports err tagged with its corerpc error class.
func CaptureException(hub *sentry.Hub, err error, level sentry.Level) {
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if errType := types.ErrorTypeOf(err); errType != "" {
			scope.SetTag("error_type", string(errType))
		}
		hub.CaptureException(err)
	})
}

func StartSentrySpan(ctx context.Context, operation, description string) (*sentry.Span, context.Context) {
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span, span.Context()
}
