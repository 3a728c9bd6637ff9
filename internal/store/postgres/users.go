package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"videotube-api/internal/user"
)

const userColumns = `id, username, email, full_name, password_hash, avatar, cover_image, refresh_token, refresh_token_expires_at, watch_history, created_at, updated_at`

var imageColumns = map[user.ImageField]string{
	user.AvatarImage: "avatar",
	user.CoverImage:  "cover_image",
}

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func scanUser(row scanner) (user.User, error) {
	var (
		u       user.User
		expires sql.NullTime
		history pq.StringArray
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Avatar, &u.CoverImage,
		&u.RefreshToken, &expires, &history, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if expires.Valid {
		t := expires.Time
		u.RefreshTokenExpiresAt = &t
	}
	u.WatchHistory = []string(history)
	return u, nil
}

func (r *UserRepository) one(row *sql.Row) (user.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicate
		}
		return user.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	id, err := newID()
	if err != nil {
		return user.User{}, err
	}
	now := r.now()
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}

	query :=
		`INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, watch_history, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING ` + userColumns

	return r.one(r.db.QueryRowContext(ctx, query,
		id, u.Username, u.Email, u.FullName, u.PasswordHash, u.Avatar, u.CoverImage, pq.Array(history), now))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.one(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (user.User, error) {
	if username == "" && email == "" {
		return user.User{}, user.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1`
	return r.one(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (user.User, error) {
	query := `UPDATE users SET full_name = $2, email = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING ` + userColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, fullName, email, r.now()))
}

func (r *UserRepository) SetImage(ctx context.Context, id string, field user.ImageField, url string) (user.User, error) {
	column, ok := imageColumns[field]
	if !ok {
		return user.User{}, fmt.Errorf("unknown image field %q", field)
	}
	query := `UPDATE users SET ` + column + ` = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING ` + userColumns
	return r.one(r.db.QueryRowContext(ctx, query, id, url, r.now()))
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, r.now())
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = $4 WHERE id = $1`,
		id, token, expiresAt.UTC(), r.now())
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, current, next string, expiresAt time.Time) (bool, error) {
	if current == "" {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $3, refresh_token_expires_at = $4, updated_at = $5
		 WHERE id = $1 AND refresh_token = $2`,
		id, current, next, expiresAt.UTC(), r.now())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token = '', refresh_token_expires_at = NULL, updated_at = $2 WHERE id = $1`,
		id, r.now())
}

func (r *UserRepository) ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = '', refresh_token_expires_at = NULL
		 WHERE id IN (
			SELECT id FROM users
			WHERE refresh_token <> '' AND refresh_token_expires_at < $1
			ORDER BY refresh_token_expires_at
			LIMIT $2
		 )`,
		now.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return affected, nil
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
