package sentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type SentryInfoData map[string]interface{}

var inited = false

// Init enables reporting. An empty dsn leaves Send a no-op.
func Init(dsn string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return fmt.Errorf("failed to sentry init: %w", err)
	}
	inited = true
	return nil
}

// Flush waits for buffered events before the process exits.
func Flush() {
	if !inited {
		return
	}
	sentry.Flush(2 * time.Second)
}

func Send(title string, data SentryInfoData, logLevel sentry.Level) {
	if !inited {
		return
	}

	go func(localHub *sentry.Hub) {
		localHub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetLevel(logLevel)
			scope.SetExtras(data)
		})
		localHub.CaptureMessage(title)
	}(sentry.CurrentHub().Clone())
}
