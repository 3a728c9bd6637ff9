package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"videotube-api/internal/apperr"
	"videotube-api/internal/principal"
	"videotube-api/internal/user"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 10 * 24 * time.Hour
)

type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

type Service struct {
	users   user.Repository
	access  *Signer
	refresh *Signer
}

func NewService(users user.Repository, cfg Config) (*Service, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}

	access, err := NewSigner(TokenTypeAccess, cfg.AccessSecret, cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := NewSigner(TokenTypeRefresh, cfg.RefreshSecret, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &Service{users: users, access: access, refresh: refresh}, nil
}

// IssueSession mints a token pair for userID and persists the refresh token.
func (s *Service) IssueSession(ctx context.Context, userID string) (Tokens, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Tokens{}, apperr.Internal("something went wrong while generating refresh and access token", err)
	}

	tokens, expiresAt, err := s.mint(u.ID)
	if err != nil {
		return Tokens{}, err
	}

	if err := s.users.SetRefreshToken(ctx, u.ID, tokens.RefreshToken, expiresAt); err != nil {
		return Tokens{}, apperr.Internal("something went wrong while generating refresh and access token", err)
	}
	return tokens, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" && email == "" {
		return Session{}, apperr.Validation("username or email is required")
	}
	if in.Password == "" {
		return Session{}, apperr.Validation("password is required")
	}

	u, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, apperr.NotFound("user does not exist")
		}
		return Session{}, apperr.Internal("failed to login", err)
	}

	ok, err := user.ComparePassword(u.PasswordHash, in.Password)
	if err != nil {
		return Session{}, apperr.Internal("failed to login", err)
	}
	if !ok {
		return Session{}, apperr.Auth("invalid user credentials")
	}

	tokens, err := s.IssueSession(ctx, u.ID)
	if err != nil {
		return Session{}, err
	}

	return Session{User: u.Public(), Tokens: tokens}, nil
}

// Logout drops the persisted refresh token. Logging out twice is fine.
func (s *Service) Logout(ctx context.Context, p principal.Principal) error {
	if p.Anonymous() {
		return apperr.Auth("unauthorized request")
	}
	if err := s.users.ClearRefreshToken(ctx, p.UserID); err != nil && !errors.Is(err, user.ErrNotFound) {
		return apperr.Internal("failed to logout", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// single-use: it is swapped out atomically, so a replay or a concurrent
// refresh with the same token fails.
func (s *Service) Refresh(ctx context.Context, presented string) (Tokens, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Tokens{}, apperr.Auth("unauthorized request")
	}

	userID, err := s.refresh.Verify(presented)
	if err != nil {
		return Tokens{}, apperr.Auth("invalid refresh token")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Tokens{}, apperr.Auth("invalid refresh token")
		}
		return Tokens{}, apperr.Internal("failed to refresh token", err)
	}

	if subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(presented)) != 1 {
		return Tokens{}, apperr.Auth("refresh token is expired or used")
	}

	tokens, expiresAt, err := s.mint(u.ID)
	if err != nil {
		return Tokens{}, err
	}

	swapped, err := s.users.SwapRefreshToken(ctx, u.ID, presented, tokens.RefreshToken, expiresAt)
	if err != nil {
		return Tokens{}, apperr.Internal("failed to refresh token", err)
	}
	if !swapped {
		return Tokens{}, apperr.Auth("refresh token is expired or used")
	}

	return tokens, nil
}

func (s *Service) ChangePassword(ctx context.Context, p principal.Principal, oldPassword, newPassword string) error {
	if p.Anonymous() {
		return apperr.Auth("unauthorized request")
	}
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("old and new password are required")
	}
	if err := user.ValidatePassword(newPassword); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.NotFound("user does not exist")
		}
		return apperr.Internal("failed to change password", err)
	}

	ok, err := user.ComparePassword(u.PasswordHash, oldPassword)
	if err != nil {
		return apperr.Internal("failed to change password", err)
	}
	if !ok {
		return apperr.Validation("invalid old password")
	}

	hash, err := user.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("failed to change password", err)
	}
	if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return apperr.Internal("failed to change password", err)
	}
	return nil
}

// VerifyAccess resolves an access token to the caller it was issued for.
func (s *Service) VerifyAccess(token string) (principal.Principal, error) {
	userID, err := s.access.Verify(strings.TrimSpace(token))
	if err != nil {
		return principal.Principal{}, apperr.Auth("invalid access token")
	}
	return principal.Principal{UserID: userID}, nil
}

func (s *Service) mint(userID string) (Tokens, time.Time, error) {
	access, _, err := s.access.Sign(userID)
	if err != nil {
		return Tokens{}, time.Time{}, apperr.Internal("something went wrong while generating refresh and access token", err)
	}
	refresh, expiresAt, err := s.refresh.Sign(userID)
	if err != nil {
		return Tokens{}, time.Time{}, apperr.Internal("something went wrong while generating refresh and access token", err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, expiresAt, nil
}
