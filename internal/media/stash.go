package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"videotube-api/internal/apperr"
)

const (
	MaxUploadSizeBytes = 10 << 20
	maxMemoryBytes     = 1 << 20
)

// Stash keeps multipart uploads on local disk until they are pushed to
// object storage.
type Stash struct {
	dir string
}

func NewStash(dir string) (*Stash, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Stash{dir: dir}, nil
}

// ParseForm parses a bounded multipart request body.
func (s *Stash) ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, 2*MaxUploadSizeBytes+maxMemoryBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		return apperr.Validation("invalid multipart form")
	}
	return nil
}

// SaveImage writes the image in form field to the stash directory and
// returns its local path. A missing field yields an empty path.
func (s *Stash) SaveImage(r *http.Request, field string) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperr.Validation("invalid " + field + " file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSizeBytes+1))
	if err != nil {
		return "", apperr.Validation("failed to read " + field + " file")
	}
	if len(data) == 0 {
		return "", apperr.Validation(field + " file is empty")
	}
	if len(data) > MaxUploadSizeBytes {
		return "", apperr.Validation(field + " file is too large")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", apperr.Validation(field + " file must be an image")
	}

	out, err := os.CreateTemp(s.dir, "upload-*"+mtype.Extension())
	if err != nil {
		return "", apperr.Internal("failed to store upload", err)
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		_ = os.Remove(out.Name())
		return "", apperr.Internal("failed to store upload", err)
	}

	return out.Name(), nil
}

// Remove deletes stashed files, ignoring empty paths.
func (s *Stash) Remove(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}
