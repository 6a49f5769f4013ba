package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("testsecret"))
	require.NoError(t, err)
	return signed
}

func TestInspector_ExpiresAt(t *testing.T) {
	expiry := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	tokenString := signToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiry),
	})

	inspector := NewInspector()

	got, err := inspector.ExpiresAt(tokenString)
	require.NoError(t, err)
	assert.True(t, got.Equal(expiry))
}

func TestInspector_ExpiresAt_NoExpiryClaim(t *testing.T) {
	tokenString := signToken(t, jwt.RegisteredClaims{Subject: "user"})

	inspector := NewInspector()

	_, err := inspector.ExpiresAt(tokenString)
	require.Error(t, err)
}

func TestInspector_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{
			name: "future expiry",
			token: signToken(t, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
			expired: false,
		},
		{
			name: "past expiry",
			token: signToken(t, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Minute)),
			}),
			expired: true,
		},
		{
			name:    "malformed token",
			token:   "not-a-jwt",
			expired: true,
		},
		{
			name:    "empty token",
			token:   "",
			expired: true,
		},
		{
			name:    "no expiry claim",
			token:   signToken(t, jwt.RegisteredClaims{Subject: "user"}),
			expired: true,
		},
	}

	inspector := NewInspector()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, inspector.IsExpired(tt.token))
		})
	}
}
