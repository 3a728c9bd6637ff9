package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"videotube-api/internal/apperr"
	"videotube-api/internal/principal"
	"videotube-api/internal/store/memory"
	"videotube-api/internal/user"
)

const testPassword = "correct-horse"

var testConfig = Config{
	AccessSecret:  "access-secret",
	AccessTTL:     time.Minute,
	RefreshSecret: "refresh-secret",
	RefreshTTL:    time.Hour,
}

func newTestService(t *testing.T) (*Service, user.Repository, user.User) {
	t.Helper()

	users := memory.New().Users()
	hash, err := user.HashPassword(testPassword)
	require.NoError(t, err)

	u, err := users.Create(context.Background(), user.User{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	svc, err := NewService(users, testConfig)
	require.NoError(t, err)
	return svc, users, u
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Create(ctx context.Context, u user.User) (user.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) FindByUsernameOrEmail(ctx context.Context, username, email string) (user.User, error) {
	args := m.Called(ctx, username, email)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) UpdateAccount(ctx context.Context, id, fullName, email string) (user.User, error) {
	args := m.Called(ctx, id, fullName, email)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) SetImage(ctx context.Context, id string, field user.ImageField, url string) (user.User, error) {
	args := m.Called(ctx, id, field, url)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) SetPasswordHash(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUsers) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return m.Called(ctx, id, token, expiresAt).Error(0)
}

func (m *mockUsers) SwapRefreshToken(ctx context.Context, id, current, next string, expiresAt time.Time) (bool, error) {
	args := m.Called(ctx, id, current, next, expiresAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsers) ClearRefreshToken(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).(int64), args.Error(1)
}

func TestLoginValidatesBeforeStoreAccess(t *testing.T) {
	repo := new(mockUsers)
	svc, err := NewService(repo, testConfig)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Password: "whatever"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Login(context.Background(), LoginInput{Username: "alice"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	repo.AssertNotCalled(t, "FindByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	svc, users, u := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, LoginInput{Email: "  ALICE@example.com ", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)
	require.NotNil(t, stored.RefreshTokenExpiresAt)

	p, err := svc.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	_, err = svc.Login(ctx, LoginInput{Username: "nobody", Password: testPassword})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIssueSessionUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.IssueSession(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestRefreshIsSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, "refresh token is expired or used", apperr.PublicMessage(err))

	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	require.NoError(t, err)

	for _, token := range []string{"", "   ", "garbage", session.AccessToken} {
		_, err := svc.Refresh(ctx, token)
		assert.True(t, apperr.Is(err, apperr.KindAuth), token)
	}
}

func TestRefreshLosesRaceWhenSwapFails(t *testing.T) {
	repo := new(mockUsers)
	svc, err := NewService(repo, testConfig)
	require.NoError(t, err)

	token, _, err := svc.refresh.Sign("u1")
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, "u1").Return(user.User{ID: "u1", RefreshToken: token}, nil)
	repo.On("SwapRefreshToken", mock.Anything, "u1", token, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(false, nil)

	_, err = svc.Refresh(context.Background(), token)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	repo.AssertExpectations(t)
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, principal.Principal{UserID: u.ID}))
	require.NoError(t, svc.Logout(ctx, principal.Principal{UserID: u.ID}))

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	err = svc.Logout(ctx, principal.Principal{})
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestChangePassword(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()
	p := principal.Principal{UserID: u.ID}

	err := svc.ChangePassword(ctx, p, "", "new-password")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.ChangePassword(ctx, p, testPassword, "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "too short")

	err = svc.ChangePassword(ctx, p, testPassword, strings.Repeat("a", 100))
	assert.True(t, apperr.Is(err, apperr.KindValidation), "over the bcrypt limit")

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	require.NoError(t, err, "rejected changes keep the old password")

	err = svc.ChangePassword(ctx, p, "wrong-password", "new-password")
	require.Error(t, err)
	assert.Equal(t, "invalid old password", apperr.PublicMessage(err))

	require.NoError(t, svc.ChangePassword(ctx, p, testPassword, "new-password"))

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: testPassword})
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "new-password"})
	assert.NoError(t, err)
}
