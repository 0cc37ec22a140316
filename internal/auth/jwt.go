// Package auth provides identity plumbing for the poll API: signed voter
// tokens, the middleware that extracts them, the optional GitHub OAuth login,
// and the coordinator gate.
//
// VOTER TOKENS:
// The poll engine needs a stable, opaque user id on every request. Instead of
// server-side sessions we issue a JWT whose "sub" claim is the user id and
// whose "name" claim is the username. The token is stateless — the server
// verifies the signature with its secret and needs no session store.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"42","name":"alice","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer names this app in the "iss" claim so tokens minted by other
// apps sharing a secret by accident are still rejected.
const tokenIssuer = "datepoll"

// tokenLifetime is how long a voter token stays valid. A poll runs for a
// month at most, so a month-long token means a voter identifies once.
const tokenLifetime = 31 * 24 * time.Hour

// Identity is the verified content of a voter token.
type Identity struct {
	UserID   string
	Username string
}

// TokenService issues and validates voter tokens.
// It holds the HMAC secret used to sign and verify; the same secret must be
// used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. RegisteredClaims carries the standard fields
// (Subject, ExpiresAt, Issuer...); Username rides along as a private claim so
// the poll engine can upsert the user without a profile lookup.
type claims struct {
	Username string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates and signs a voter token for the given identity.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment where one process both signs and verifies.
func (s *TokenService) Generate(id Identity) (string, error) {
	now := time.Now()

	c := claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning the identity inside.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks — without
//     jwt.WithValidMethods an attacker could present an alg=none token)
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Identity{UserID: c.Subject, Username: c.Username}, nil
}
