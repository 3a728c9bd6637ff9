package auth

import (
	"net/http"
	"strings"

	"videotube-api/internal/apperr"
	"videotube-api/internal/principal"
)

// Authenticate rejects requests without a valid access token and puts the
// caller on the request context.
func Authenticate(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := accessToken(r)
			if err != nil {
				unauthorized(w, err)
				return
			}

			p, err := service.VerifyAccess(token)
			if err != nil {
				unauthorized(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), p)))
		})
	}
}

// OptionalAuthenticate attaches the caller when a valid access token is
// present and lets every other request through anonymously.
func OptionalAuthenticate(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := accessToken(r)
			if err == nil {
				if p, err := service.VerifyAccess(token); err == nil {
					r = r.WithContext(principal.WithContext(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value), nil
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", apperr.Auth("unauthorized request")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.Auth("invalid authorization format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", apperr.Auth("invalid access token")
	}
	return token, nil
}
