package observability

import (
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

var sensitiveHeaders = []string{"authorization", "cookie", "set-cookie"}

// InitSentry is a no-op without a DSN, so local runs need no account.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
}

// scrubEvent drops session tokens from captured requests. Access and
// refresh tokens travel in cookies and the Authorization header.
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}

	event.Request.Cookies = ""
	for name := range event.Request.Headers {
		for _, sensitive := range sensitiveHeaders {
			if strings.EqualFold(name, sensitive) {
				delete(event.Request.Headers, name)
			}
		}
	}
	return event
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
