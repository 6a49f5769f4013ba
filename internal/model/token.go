package model

import (
	"context"
	"time"
)

// MockToken is the sentinel credential accepted when mock auth is enabled
// on the backend. It is never honored unless the runtime config flag says so.
const MockToken = "mock-token"

// TokenPair holds the current access/refresh credentials.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no credentials are held at all.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenStore persists the token pair. Mutated only by the session service;
// every other component treats it as read-only.
type TokenStore interface {
	Get(ctx context.Context) (TokenPair, error)
	Set(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}

// TokenInspector derives token expiry without a network call.
// A malformed token is reported as expired.
type TokenInspector interface {
	ExpiresAt(token string) (time.Time, error)
	IsExpired(token string) bool
}

// Credentials are the login inputs presented to the credential endpoint.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// RuntimeConfig is the backend-controlled runtime configuration fetched at
// session init.
type RuntimeConfig struct {
	MockAuthEnabled bool `json:"mockAuthEnabled"`
}
