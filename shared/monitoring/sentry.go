package monitoring

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds Sentry configuration options
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
	SampleRate  float64
	ServiceName string
}

// InitSentry initializes Sentry with the provided configuration.
// A missing DSN disables reporting instead of failing startup.
func InitSentry(config *SentryConfig) error {
	dsn := config.DSN
	if dsn == "" {
		dsn = os.Getenv("SENTRY_DSN")
	}
	if dsn == "" {
		return nil
	}

	environment := config.Environment
	if environment == "" {
		environment = os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     config.Release,
		Debug:       config.Debug,
		SampleRate:  sampleRate,
		ServerName:  config.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("sentry init failed: %w", err)
	}
	return nil
}

// FlushSentry drains buffered events before shutdown
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an error with component context
func CaptureError(err error, component string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}
