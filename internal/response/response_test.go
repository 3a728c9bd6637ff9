package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-api/internal/apperr"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()

	OK(rec, http.StatusCreated, map[string]string{"name": "watch later"}, "Playlist created successfully")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "Playlist created successfully", env.Message)
	assert.Equal(t, map[string]any{"name": "watch later"}, env.Data)
}

func TestFail(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"conflict", apperr.Conflict("playlist with same name already exists"), http.StatusConflict, "playlist with same name already exists"},
		{"auth", apperr.Auth("unauthorized request"), http.StatusUnauthorized, "unauthorized request"},
		{"internal hides cause", apperr.Internal("failed to fetch channel", errors.New("pq: password=secret")), http.StatusInternalServerError, "failed to fetch channel"},
		{"unknown", errors.New("raw"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Fail(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.status, env.StatusCode)
			assert.Equal(t, tt.message, env.Message)
			assert.Nil(t, env.Data)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"mix"}`))
		var dst body
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, "mix", dst.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var dst body
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
		assert.Empty(t, dst.Name)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
		var dst body
		err := DecodeJSON(httptest.NewRecorder(), req, &dst)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}
