// Package auth verifies bearer credentials and guards routes by role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
)

// DefaultTTL is the lifetime of an access token.
const DefaultTTL = 24 * time.Hour

// Claims binds a token to an external identity id.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token manager. An empty secret is rejected.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue mints a token for uid. Every call yields a distinct token.
func (t *Tokens) Issue(uid string) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded uid. It does
// not consult any store.
func (t *Tokens) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UID == "" {
		return "", fmt.Errorf("%w: token is invalid", apperr.ErrUnauthenticated)
	}
	return claims.UID, nil
}

// VerifyCaller is Verify plus the check that the token belongs to the id
// the caller asserts.
func (t *Tokens) VerifyCaller(tokenString, claimedUID string) (string, error) {
	uid, err := t.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if uid != claimedUID {
		return "", fmt.Errorf("%w: token does not belong to caller", apperr.ErrUnauthenticated)
	}
	return uid, nil
}
