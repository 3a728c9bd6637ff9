// Package media moves user-supplied files to object storage and hands back
// the public URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Asset is an uploaded object.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// Uploader uploads the file at localPath.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (Asset, error)
}

var ErrEmptyPath = errors.New("empty local path")

const (
	BackendCloudinary = "cloudinary"
	BackendS3         = "s3"
)

type Config struct {
	Backend       string
	CloudinaryURL string
	S3            S3Config
}

// New builds the uploader selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Uploader, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendCloudinary:
		c, err := NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendS3:
		u, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
