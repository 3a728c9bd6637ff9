package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"videotube-api/internal/playlist"
)

const playlistColumns = `id, name, description, owner_id, videos, created_at, updated_at`

type PlaylistRepository struct {
	db  *sql.DB
	now func() time.Time
}

func scanPlaylist(row scanner) (playlist.Playlist, error) {
	var (
		p      playlist.Playlist
		videos pq.StringArray
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Owner, &videos, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return playlist.Playlist{}, err
	}
	p.Videos = []string(videos)
	if p.Videos == nil {
		p.Videos = []string{}
	}
	return p, nil
}

func (r *PlaylistRepository) one(row *sql.Row) (playlist.Playlist, error) {
	p, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return playlist.Playlist{}, playlist.ErrNotFound
		}
		if isUniqueViolation(err) {
			return playlist.Playlist{}, playlist.ErrDuplicate
		}
		return playlist.Playlist{}, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PlaylistRepository) Create(ctx context.Context, p playlist.Playlist) (playlist.Playlist, error) {
	id, err := newID()
	if err != nil {
		return playlist.Playlist{}, err
	}
	videos := p.Videos
	if videos == nil {
		videos = []string{}
	}

	query :=
		`INSERT INTO playlists (id, name, description, owner_id, videos, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING ` + playlistColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, p.Name, p.Description, p.Owner, pq.Array(videos), r.now()))
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (playlist.Playlist, error) {
	return r.one(r.db.QueryRowContext(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
}

func (r *PlaylistRepository) FindByOwnerAndName(ctx context.Context, owner, name string) (playlist.Playlist, error) {
	return r.one(r.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE owner_id = $1 AND name = $2`, owner, name))
}

func (r *PlaylistRepository) AddVideo(ctx context.Context, id, videoID string) (playlist.Playlist, error) {
	query := `UPDATE playlists
		 SET videos = CASE WHEN $2::text = ANY(videos) THEN videos ELSE array_append(videos, $2::text) END,
		     updated_at = $3
		 WHERE id = $1
		 RETURNING ` + playlistColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, videoID, r.now()))
}

func (r *PlaylistRepository) RemoveVideo(ctx context.Context, id, videoID string) (playlist.Playlist, error) {
	query := `UPDATE playlists SET videos = array_remove(videos, $2::text), updated_at = $3
		 WHERE id = $1
		 RETURNING ` + playlistColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, videoID, r.now()))
}

func (r *PlaylistRepository) Update(ctx context.Context, id, name, description string) (playlist.Playlist, error) {
	query := `UPDATE playlists SET name = $2, description = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING ` + playlistColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, name, description, r.now()))
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) (playlist.Playlist, error) {
	return r.one(r.db.QueryRowContext(ctx, `DELETE FROM playlists WHERE id = $1 RETURNING `+playlistColumns, id))
}
