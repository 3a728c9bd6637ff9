// Package principal carries the authenticated caller from the HTTP layer
// to the handlers, which pass it to services explicitly.
package principal

import "context"

type Principal struct {
	UserID string
}

func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

type contextKey string

const principalKey contextKey = "principal"

func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal stored by the authentication
// middleware. ok is false for anonymous requests.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.Anonymous() {
		return Principal{}, false
	}
	return p, true
}
