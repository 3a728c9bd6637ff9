package playlist

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"videotube-api/internal/apperr"
	"videotube-api/internal/pipeline"
	"videotube-api/internal/principal"
	"videotube-api/internal/user"
	"videotube-api/internal/video"
)

type Service struct {
	playlists Repository
	source    pipeline.Source
}

func NewService(playlists Repository, source pipeline.Source) *Service {
	return &Service{playlists: playlists, source: source}
}

func (s *Service) Create(ctx context.Context, p principal.Principal, name, description string) (Playlist, error) {
	if p.Anonymous() {
		return Playlist{}, apperr.Auth("unauthorized request")
	}

	name = strings.ToLower(strings.TrimSpace(name))
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return Playlist{}, apperr.Validation("name and description are required")
	}

	if _, err := s.playlists.FindByOwnerAndName(ctx, p.UserID, name); err == nil {
		return Playlist{}, apperr.Conflict("playlist with same name already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return Playlist{}, apperr.Internal("failed to create playlist", err)
	}

	created, err := s.playlists.Create(ctx, Playlist{Name: name, Description: description, Owner: p.UserID})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Playlist{}, apperr.Conflict("playlist with same name already exists")
		}
		return Playlist{}, apperr.Internal("failed to create playlist", err)
	}
	return created, nil
}

// ListByOwner returns the owner's playlists with their video count and the
// owner's public details.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	ownerID, err := parseID(ownerID, "user id")
	if err != nil {
		return nil, err
	}

	docs, err := pipeline.From(Collection).
		Match("owner", ownerID).
		Lookup(pipeline.Lookup{
			From:         video.Collection,
			LocalField:   "videos",
			ForeignField: "_id",
			As:           "videos",
		}).
		Lookup(pipeline.Lookup{
			From:         user.Collection,
			LocalField:   "owner",
			ForeignField: "_id",
			As:           "ownerDetails",
			Pipeline:     pipeline.Sub().Project("username", "fullName", "avatar"),
		}).
		AddFields(
			pipeline.Set{Name: "totalVideos", Expr: pipeline.Size("videos")},
			pipeline.Set{Name: "ownerDetails", Expr: pipeline.First("ownerDetails")},
		).
		Project("name", "description", "createdAt", "updatedAt", "totalVideos", "ownerDetails").
		Run(ctx, s.source)
	if err != nil {
		return nil, apperr.Internal("failed to fetch playlists", err)
	}

	summaries := make([]Summary, 0, len(docs))
	if err := pipeline.Decode(docs, &summaries); err != nil {
		return nil, apperr.Internal("failed to fetch playlists", err)
	}
	return summaries, nil
}

func (s *Service) Get(ctx context.Context, id string) (Playlist, error) {
	id, err := parseID(id, "playlist id")
	if err != nil {
		return Playlist{}, err
	}
	return s.load(ctx, id)
}

func (s *Service) AddVideo(ctx context.Context, p principal.Principal, playlistID, videoID string) (Playlist, error) {
	pl, videoID, err := s.ownedWithVideo(ctx, p, playlistID, videoID)
	if err != nil {
		return Playlist{}, err
	}

	exists, err := s.videoExists(ctx, videoID)
	if err != nil {
		return Playlist{}, err
	}
	if !exists {
		return Playlist{}, apperr.NotFound("video not found")
	}

	updated, err := s.playlists.AddVideo(ctx, pl.ID, videoID)
	if err != nil {
		return Playlist{}, s.mutationError(err, "failed to add video to playlist")
	}
	return updated, nil
}

// RemoveVideo drops every occurrence of videoID. The video itself may
// already be gone.
func (s *Service) RemoveVideo(ctx context.Context, p principal.Principal, playlistID, videoID string) (Playlist, error) {
	pl, videoID, err := s.ownedWithVideo(ctx, p, playlistID, videoID)
	if err != nil {
		return Playlist{}, err
	}

	updated, err := s.playlists.RemoveVideo(ctx, pl.ID, videoID)
	if err != nil {
		return Playlist{}, s.mutationError(err, "failed to remove video from playlist")
	}
	return updated, nil
}

func (s *Service) Update(ctx context.Context, p principal.Principal, id, name, description string) (Playlist, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	description = strings.TrimSpace(description)
	if strings.TrimSpace(id) == "" || name == "" || description == "" {
		return Playlist{}, apperr.Validation("playlist id, name and description are required")
	}

	pl, err := s.owned(ctx, p, id)
	if err != nil {
		return Playlist{}, err
	}

	if other, err := s.playlists.FindByOwnerAndName(ctx, pl.Owner, name); err == nil && other.ID != pl.ID {
		return Playlist{}, apperr.Conflict("playlist with same name already exists")
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Playlist{}, apperr.Internal("failed to update playlist", err)
	}

	updated, err := s.playlists.Update(ctx, pl.ID, name, description)
	if err != nil {
		return Playlist{}, s.mutationError(err, "failed to update playlist")
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p principal.Principal, id string) (Playlist, error) {
	pl, err := s.owned(ctx, p, id)
	if err != nil {
		return Playlist{}, err
	}

	deleted, err := s.playlists.Delete(ctx, pl.ID)
	if err != nil {
		return Playlist{}, s.mutationError(err, "failed to delete playlist")
	}
	return deleted, nil
}

func (s *Service) ownedWithVideo(ctx context.Context, p principal.Principal, playlistID, videoID string) (Playlist, string, error) {
	if strings.TrimSpace(playlistID) == "" || strings.TrimSpace(videoID) == "" {
		return Playlist{}, "", apperr.Validation("playlist id and video id are required")
	}
	videoID, err := parseID(videoID, "video id")
	if err != nil {
		return Playlist{}, "", err
	}
	pl, err := s.owned(ctx, p, playlistID)
	if err != nil {
		return Playlist{}, "", err
	}
	return pl, videoID, nil
}

// owned loads the playlist and checks the caller owns it.
func (s *Service) owned(ctx context.Context, p principal.Principal, id string) (Playlist, error) {
	if p.Anonymous() {
		return Playlist{}, apperr.Auth("unauthorized request")
	}
	id, err := parseID(id, "playlist id")
	if err != nil {
		return Playlist{}, err
	}

	pl, err := s.load(ctx, id)
	if err != nil {
		return Playlist{}, err
	}
	if pl.Owner != p.UserID {
		return Playlist{}, apperr.Forbidden("you are not allowed to modify this playlist")
	}
	return pl, nil
}

func (s *Service) load(ctx context.Context, id string) (Playlist, error) {
	pl, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Playlist{}, apperr.NotFound("playlist not found")
		}
		return Playlist{}, apperr.Internal("failed to fetch playlist", err)
	}
	return pl, nil
}

func (s *Service) videoExists(ctx context.Context, id string) (bool, error) {
	docs, err := pipeline.From(video.Collection).Match("_id", id).Project("_id").Run(ctx, s.source)
	if err != nil {
		return false, apperr.Internal("failed to fetch video", err)
	}
	return len(docs) > 0, nil
}

func (s *Service) mutationError(err error, message string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("playlist not found")
	case errors.Is(err, ErrDuplicate):
		return apperr.Conflict("playlist with same name already exists")
	default:
		return apperr.Internal(message, err)
	}
}

func parseID(raw, name string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation(name + " is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Validation("invalid " + name)
	}
	return parsed.String(), nil
}
