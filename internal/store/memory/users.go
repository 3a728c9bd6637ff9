package memory

import (
	"context"
	"time"

	"videotube-api/internal/user"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(_ context.Context, u user.User) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return user.User{}, user.ErrDuplicate
		}
	}

	if u.ID == "" {
		id, err := newID()
		if err != nil {
			return user.User{}, err
		}
		u.ID = id
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.WatchHistory = cloneStrings(u.WatchHistory)
	s.users = append(s.users, u)

	return copyUser(u), nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (user.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(s.users[i]), nil
}

func (r *UserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (user.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return copyUser(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UserRepository) UpdateAccount(_ context.Context, id, fullName, email string) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.User{}, user.ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != id && other.Email == email {
			return user.User{}, user.ErrDuplicate
		}
	}

	s.users[i].FullName = fullName
	s.users[i].Email = email
	s.users[i].UpdatedAt = s.now()
	return copyUser(s.users[i]), nil
}

func (r *UserRepository) SetImage(_ context.Context, id string, field user.ImageField, url string) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.User{}, user.ErrNotFound
	}
	switch field {
	case user.AvatarImage:
		s.users[i].Avatar = url
	case user.CoverImage:
		s.users[i].CoverImage = url
	}
	s.users[i].UpdatedAt = s.now()
	return copyUser(s.users[i]), nil
}

func (r *UserRepository) SetPasswordHash(_ context.Context, id, hash string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.ErrNotFound
	}
	s.users[i].PasswordHash = hash
	s.users[i].UpdatedAt = s.now()
	return nil
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.ErrNotFound
	}
	exp := expiresAt.UTC()
	s.users[i].RefreshToken = token
	s.users[i].RefreshTokenExpiresAt = &exp
	return nil
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, id, current, next string, expiresAt time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return false, user.ErrNotFound
	}
	if s.users[i].RefreshToken == "" || s.users[i].RefreshToken != current {
		return false, nil
	}
	exp := expiresAt.UTC()
	s.users[i].RefreshToken = next
	s.users[i].RefreshTokenExpiresAt = &exp
	return true, nil
}

func (r *UserRepository) ClearRefreshToken(_ context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return user.ErrNotFound
	}
	s.users[i].RefreshToken = ""
	s.users[i].RefreshTokenExpiresAt = nil
	return nil
}

func (r *UserRepository) ClearExpiredRefreshTokens(_ context.Context, now time.Time, limit int) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for i := range s.users {
		if limit > 0 && cleared >= int64(limit) {
			break
		}
		exp := s.users[i].RefreshTokenExpiresAt
		if s.users[i].RefreshToken == "" || exp == nil || !exp.Before(now) {
			continue
		}
		s.users[i].RefreshToken = ""
		s.users[i].RefreshTokenExpiresAt = nil
		cleared++
	}
	return cleared, nil
}

func copyUser(u user.User) user.User {
	u.WatchHistory = cloneStrings(u.WatchHistory)
	if u.RefreshTokenExpiresAt != nil {
		exp := *u.RefreshTokenExpiresAt
		u.RefreshTokenExpiresAt = &exp
	}
	return u
}
