// Package auth handles naptrack JWT token validation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMalformed    = errors.New("malformed token")
)

// Claims represents the JWT claims issued by the identity service.
type Claims struct {
	UserID   string `json:"uid"`
	Timezone string `json:"tz,omitempty"` // IANA name, optional
	jwt.RegisteredClaims
}

// UserInfo contains extracted user information from a validated token.
type UserInfo struct {
	UserID    string
	Timezone  string
	ExpiresAt time.Time
}

// clockSkew tolerates small clock drift between the issuer and this service.
const clockSkew = 30 * time.Second

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Authenticator validates HMAC-signed JWT tokens.
type Authenticator struct {
	tokenKey []byte
	parser   *jwt.Parser
}

// New creates a new Authenticator with the given JWT signing key.
func New(tokenKey []byte) *Authenticator {
	return &Authenticator{
		tokenKey: tokenKey,
		parser:   jwt.NewParser(jwt.WithValidMethods(hmacMethods), jwt.WithLeeway(clockSkew)),
	}
}

// ValidateToken validates a JWT token and returns user information.
func (a *Authenticator) ValidateToken(tokenString string) (*UserInfo, error) {
	var claims Claims
	_, err := a.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return a.tokenKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case claims.UserID == "":
		return nil, ErrMalformed
	}

	info := &UserInfo{UserID: claims.UserID, Timezone: claims.Timezone}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// IssueToken signs a token for userID. It is used by tooling and tests;
// production tokens come from the identity service.
func (a *Authenticator) IssueToken(userID, timezone string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Timezone: timezone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.tokenKey)
}
