package auth

import (
	"net/http"
	"strings"
	"time"

	"videotube-api/internal/apperr"
	"videotube-api/internal/principal"
	"videotube-api/internal/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginInput
	if err := response.DecodeJSON(w, r, &body); err != nil {
		response.Fail(w, err)
		return
	}

	session, err := h.service.Login(r.Context(), body)
	if err != nil {
		response.Fail(w, err)
		return
	}

	setSessionCookies(w, session.Tokens)
	response.OK(w, http.StatusOK, session, "User logged in successfully")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	if err := h.service.Logout(r.Context(), p); err != nil {
		response.Fail(w, err)
		return
	}

	clearSessionCookies(w)
	response.OK(w, http.StatusOK, map[string]any{}, "User logged out")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		presented = cookie.Value
	}
	if strings.TrimSpace(presented) == "" {
		var body refreshRequest
		if err := response.DecodeJSON(w, r, &body); err != nil {
			response.Fail(w, err)
			return
		}
		presented = body.RefreshToken
	}

	tokens, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		response.Fail(w, err)
		return
	}

	setSessionCookies(w, tokens)
	response.OK(w, http.StatusOK, tokens, "Access token refreshed")
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordRequest
	if err := response.DecodeJSON(w, r, &body); err != nil {
		response.Fail(w, err)
		return
	}

	p, _ := principal.FromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), p, body.OldPassword, body.NewPassword); err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, http.StatusOK, map[string]any{}, "Password changed successfully")
}

func setSessionCookies(w http.ResponseWriter, tokens Tokens) {
	http.SetCookie(w, sessionCookie(AccessCookie, tokens.AccessToken))
	http.SetCookie(w, sessionCookie(RefreshCookie, tokens.RefreshToken))
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := sessionCookie(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func sessionCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) != apperr.KindAuth {
		err = apperr.Auth("unauthorized request")
	}
	response.Fail(w, err)
}
