package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"_id"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 tokens of one type. Access and refresh
// tokens use separate signers with separate secrets.
type Signer struct {
	tokenType string
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewSigner(tokenType, secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%s token secret is required", tokenType)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%s token ttl must be positive", tokenType)
	}
	return &Signer{
		tokenType: tokenType,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// Sign returns a token for userID and its expiry. Every token carries a
// fresh jti, so two tokens minted in the same second still differ.
func (s *Signer) Sign(userID string) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	claims := Claims{
		UserID: userID,
		Type:   s.tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s jwt: %w", s.tokenType, err)
	}
	return encoded, expiresAt, nil
}

// Verify checks signature, expiry and token type and returns the user id.
func (s *Signer) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Type != s.tokenType || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
