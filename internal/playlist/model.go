package playlist

import (
	"context"
	"errors"
	"time"

	"videotube-api/internal/pipeline"
)

const Collection = "playlists"

type Playlist struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p Playlist) Document() pipeline.Document {
	videos := make([]any, len(p.Videos))
	for i, id := range p.Videos {
		videos[i] = id
	}
	return pipeline.Document{
		"_id":         p.ID,
		"name":        p.Name,
		"description": p.Description,
		"owner":       p.Owner,
		"videos":      videos,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

type OwnerDetails struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Summary is a playlist as listed on its owner's page.
type Summary struct {
	ID           string        `json:"_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	TotalVideos  int           `json:"totalVideos"`
	OwnerDetails *OwnerDetails `json:"ownerDetails,omitempty"`
}

var (
	ErrNotFound  = errors.New("playlist not found")
	ErrDuplicate = errors.New("playlist with same name already exists for the user")
)

// Repository persists playlists. Single-record operations return
// ErrNotFound for unknown ids; an (owner, name) collision returns
// ErrDuplicate.
type Repository interface {
	Create(ctx context.Context, p Playlist) (Playlist, error)
	GetByID(ctx context.Context, id string) (Playlist, error)
	FindByOwnerAndName(ctx context.Context, owner, name string) (Playlist, error)
	// AddVideo appends videoID unless it is already present.
	AddVideo(ctx context.Context, id, videoID string) (Playlist, error)
	// RemoveVideo drops every occurrence of videoID.
	RemoveVideo(ctx context.Context, id, videoID string) (Playlist, error)
	Update(ctx context.Context, id, name, description string) (Playlist, error)
	Delete(ctx context.Context, id string) (Playlist, error)
}
