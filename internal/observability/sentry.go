package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry wires crash reporting when a DSN is configured. An empty DSN
// leaves Sentry disabled and is not an error.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry drains buffered events before shutdown.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
