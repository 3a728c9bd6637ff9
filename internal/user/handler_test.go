package user_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-api/internal/media"
	"videotube-api/internal/principal"
	"videotube-api/internal/response"
	"videotube-api/internal/user"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newHandler(t *testing.T) (*user.Handler, *user.Service, string) {
	t.Helper()
	dir := t.TempDir()
	stash, err := media.NewStash(dir)
	require.NoError(t, err)
	svc, _, _ := newService(t)
	return user.NewHandler(svc, stash), svc, dir
}

func TestRegisterHandler(t *testing.T) {
	h, _, dir := newHandler(t)

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Alice",
		"email":    "alice@example.com",
		"username": "alice",
		"password": "password123",
	}, map[string][]byte{"avatar": pngHeader})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.NotContains(t, rec.Body.String(), "password")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "stashed uploads are removed")
}

func TestRegisterHandlerRejectsNonImage(t *testing.T) {
	h, _, _ := newHandler(t)

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Alice",
		"email":    "alice@example.com",
		"username": "alice",
		"password": "password123",
	}, map[string][]byte{"avatar": []byte("just some text")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelProfileHandler(t *testing.T) {
	h, svc, _ := newHandler(t)
	alice := register(t, svc, "alice")

	router := chi.NewRouter()
	router.Get("/c/{username}", h.ChannelProfile)

	req := httptest.NewRequest(http.MethodGet, "/c/alice", nil)
	req = req.WithContext(principal.WithContext(req.Context(), principal.Principal{UserID: alice.ID}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data user.ChannelProfile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "alice", env.Data.Username)
	assert.Zero(t, env.Data.SubscribersCount)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentUserHandlerRequiresPrincipal(t *testing.T) {
	h, _, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.CurrentUser(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
