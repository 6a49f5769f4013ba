package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/workdesk-client/internal/model"
)

// Inspector reads expiry claims from JWT tokens. The client never holds the
// signing secret, so tokens are decoded without signature verification:
// "valid" here means only "not past the embedded exp claim". The server
// remains the authority on everything else.
type Inspector struct {
	parser *jwt.Parser
}

// NewInspector creates a new token Inspector.
func NewInspector() model.TokenInspector {
	return &Inspector{parser: jwt.NewParser()}
}

// ExpiresAt decodes the token's embedded expiry timestamp.
func (i *Inspector) ExpiresAt(tokenString string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether the token's embedded expiry has passed.
// A malformed token or one without an expiry claim is treated as expired.
func (i *Inspector) IsExpired(tokenString string) bool {
	expiresAt, err := i.ExpiresAt(tokenString)
	if err != nil {
		return true
	}
	return time.Now().After(expiresAt)
}
