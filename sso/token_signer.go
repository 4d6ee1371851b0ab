package sso

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/course-sso/internal/errors"
)

// Identity is the user an SSO token is minted for.
type Identity struct {
	Email string
	Name  string
}

// Claims carried by a minted SSO token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner mints short lived HS256 SSO tokens keyed by the merchant API
// token, for identities verified by an OAuth provider.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(apiToken string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenSigner{secret: []byte(apiToken), ttl: ttl, now: time.Now}
}

func (s *TokenSigner) Sign(id Identity) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("[TokenSigner Sign] no API token: %w", apperrors.ErrConfiguration)
	}
	if id.Email == "" {
		return "", apperrors.Validation("identity has no email")
	}

	now := s.now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("[TokenSigner Sign] sign: %w", err)
	}
	return signed, nil
}

// Parse verifies a token minted with the same API token.
func (s *TokenSigner) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("[TokenSigner Parse] %w", err)
	}
	return claims, nil
}
