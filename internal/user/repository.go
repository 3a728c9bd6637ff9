package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user with email or username already exists")
)

// Repository persists users. Lookups return ErrNotFound when nothing
// matches, writes violating username/email uniqueness return ErrDuplicate.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	// FindByUsernameOrEmail matches either field; empty arguments match
	// nothing.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (User, error)
	SetImage(ctx context.Context, id string, field ImageField, url string) (User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// SwapRefreshToken replaces the persisted refresh credential only when it
	// still equals current. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, current, next string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
	// ClearExpiredRefreshTokens drops up to limit persisted refresh
	// credentials that expired before now.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error)
}
