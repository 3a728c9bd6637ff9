package observability

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubEventDropsSessionTokens(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		URL:     "https://api.example.com/api/v1/users/current-user",
		Cookies: "accessToken=abc; refreshToken=def",
		Headers: map[string]string{
			"Authorization": "Bearer abc",
			"Cookie":        "accessToken=abc",
			"User-Agent":    "curl/8.0",
		},
	}}

	scrubbed := scrubEvent(event)
	require.NotNil(t, scrubbed)
	assert.Empty(t, scrubbed.Request.Cookies)
	assert.Equal(t, map[string]string{"User-Agent": "curl/8.0"}, scrubbed.Request.Headers)
}

func TestScrubEventWithoutRequest(t *testing.T) {
	event := &sentry.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event))
	assert.Nil(t, scrubEvent(nil))
}

func TestInitSentryWithoutDSN(t *testing.T) {
	assert.NoError(t, InitSentry("", "test", "dev"))
}
