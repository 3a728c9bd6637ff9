// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"

	"videotube-api/internal/apperr"
)

const maxJSONBodyBytes = 1 << 20

type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// Fail maps err onto the error envelope. Internal failures are reported to
// Sentry and rendered with their public message only.
func Fail(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		sentry.CaptureException(err)
	}

	status := kind.StatusCode()
	WriteJSON(w, status, Envelope{
		StatusCode: status,
		Message:    apperr.PublicMessage(err),
		Success:    false,
	})
}

// Error writes a failure envelope with an explicit status, for rejections
// that happen before any service operation runs.
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}

// DecodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid json body")
	}

	return nil
}
