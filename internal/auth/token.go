// Package auth issues and verifies the session credential presented when a
// websocket connects, and reserves usernames for the process lifetime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity inside a signed token.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs an HS256 token for user.
func (i *Issuer) Issue(user domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier is stateless; it only checks signature, expiry and required claims.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.User{}, ErrInvalidToken
	}
	id := domain.UserID(claims.Subject)
	if !id.Valid() || claims.Name == "" {
		return domain.User{}, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return domain.User{ID: id, Username: claims.Name}, nil
}
