// Package auth provides optional JWT bearer authentication for the HTTP API.
//
// Tokens are HMAC-signed (HS256) with a shared secret from config. When no
// secret is configured the API runs open, which is the expected mode for
// local development and demos.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "context-graphs"

// Claims extends jwt.RegisteredClaims with the acting agent's identity.
type Claims struct {
	jwt.RegisteredClaims
	ActorID string `json:"actor_id"`
}

// JWTManager handles token creation and validation using HS256.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTManager creates a manager from a shared secret. Returns nil when the
// secret is empty, which callers treat as auth disabled.
func NewJWTManager(secret string, expiration time.Duration) *JWTManager {
	if secret == "" {
		return nil
	}
	return &JWTManager{secret: []byte(secret), expiration: expiration}
}

// IssueToken creates a signed JWT for the given actor.
func (m *JWTManager) IssueToken(actorID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.expiration)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		ActorID: actorID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithAudience(issuer),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	return claims, nil
}
