package media

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-api/internal/apperr"
)

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, "file.bin")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.WriteField("note", "x"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestStashSaveImage(t *testing.T) {
	dir := t.TempDir()
	stash, err := NewStash(dir)
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	req := multipartRequest(t, "avatar", png)
	require.NoError(t, stash.ParseForm(httptest.NewRecorder(), req))

	path, err := stash.SaveImage(req, "avatar")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	missing, err := stash.SaveImage(req, "coverImage")
	require.NoError(t, err)
	assert.Empty(t, missing)

	stash.Remove(path, "")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStashRejectsNonImages(t *testing.T) {
	stash, err := NewStash(t.TempDir())
	require.NoError(t, err)

	req := multipartRequest(t, "avatar", []byte("hello world"))
	require.NoError(t, stash.ParseForm(httptest.NewRecorder(), req))

	_, err = stash.SaveImage(req, "avatar")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestStashParseFormRejectsJSON(t *testing.T) {
	stash, err := NewStash(t.TempDir())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	err = stash.ParseForm(httptest.NewRecorder(), req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
