// Package postgres stores documents in PostgreSQL tables and serves the
// pipeline Source contract with "= ANY" lookups on whitelisted columns.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"videotube-api/internal/pipeline"
	"videotube-api/internal/playlist"
	"videotube-api/internal/subscription"
	"videotube-api/internal/user"
	"videotube-api/internal/video"
)

const uniqueViolation = "23505"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db, now: s.now}
}

func (s *Store) Playlists() *PlaylistRepository {
	return &PlaylistRepository{db: s.db, now: s.now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

type collectionTable struct {
	table   string
	columns string
	fields  map[string]string
	scan    func(scanner) (pipeline.Document, error)
}

var collections = map[string]collectionTable{
	user.Collection: {
		table:   "users",
		columns: userColumns,
		fields:  map[string]string{"_id": "id", "username": "username", "email": "email"},
		scan: func(row scanner) (pipeline.Document, error) {
			u, err := scanUser(row)
			return u.Document(), err
		},
	},
	video.Collection: {
		table:   "videos",
		columns: videoColumns,
		fields:  map[string]string{"_id": "id", "owner": "owner_id"},
		scan: func(row scanner) (pipeline.Document, error) {
			v, err := scanVideo(row)
			return v.Document(), err
		},
	},
	playlist.Collection: {
		table:   "playlists",
		columns: playlistColumns,
		fields:  map[string]string{"_id": "id", "owner": "owner_id", "name": "name"},
		scan: func(row scanner) (pipeline.Document, error) {
			p, err := scanPlaylist(row)
			return p.Document(), err
		},
	},
	subscription.Collection: {
		table:   "subscriptions",
		columns: subscriptionColumns,
		fields:  map[string]string{"_id": "id", "subscriber": "subscriber_id", "channel": "channel_id"},
		scan: func(row scanner) (pipeline.Document, error) {
			sub, err := scanSubscription(row)
			return sub.Document(), err
		},
	},
}

// Find implements pipeline.Source. Only whitelisted fields can be
// filtered on; every value must be a string.
func (s *Store) Find(ctx context.Context, collection, field string, values []any) ([]pipeline.Document, error) {
	t, ok := collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	column, ok := t.fields[field]
	if !ok {
		return nil, fmt.Errorf("field %q of %s is not queryable", field, collection)
	}

	keys := make([]string, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unsupported %s value of type %T", field, v)
		}
		keys = append(keys, str)
	}

	out := make([]pipeline.Document, 0)
	if len(keys) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1) ORDER BY created_at, id`, t.columns, t.table, column)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

const videoColumns = `id, video_file, thumbnail, title, description, duration, views, is_published, owner_id, created_at, updated_at`

func scanVideo(row scanner) (video.Video, error) {
	var v video.Video
	err := row.Scan(&v.ID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description, &v.Duration,
		&v.Views, &v.IsPublished, &v.Owner, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

const subscriptionColumns = `id, subscriber_id, channel_id, created_at`

func scanSubscription(row scanner) (subscription.Subscription, error) {
	var sub subscription.Subscription
	err := row.Scan(&sub.ID, &sub.Subscriber, &sub.Channel, &sub.CreatedAt)
	return sub, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
