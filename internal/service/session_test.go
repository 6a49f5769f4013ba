package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/workdesk-client/internal/mocks"
	"github.com/dtroode/workdesk-client/internal/model"
	"github.com/dtroode/workdesk-client/internal/storage/memory"
	"github.com/dtroode/workdesk-client/internal/testutil"
	"github.com/dtroode/workdesk-client/internal/token"
)

func signTestToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := tok.SignedString([]byte("testsecret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSession_Login_Success(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, LoginPath, r.URL.Path)

		var creds model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "user@example.com", creds.Login)

		writeJSON(t, w, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"})
	}))
	defer server.Close()

	store := memory.New()
	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	err := session.Login(ctx, model.Credentials{Login: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, pair)
}

func TestSession_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := &mocks.TokenStore{}
	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	err := session.Login(ctx, model.Credentials{Login: "user@example.com", Password: "wrong"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	// Prior state stays untouched on failure.
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestSession_Logout_ClearsEvenWhenBackendFails(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := memory.New()
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}))

	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	require.NoError(t, session.Logout(ctx))

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestSession_Logout_ClearsWhenBackendUnreachable(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}))

	session := NewSession(store, token.NewInspector(), "http://127.0.0.1:1", &http.Client{Timeout: 100 * time.Millisecond}, testutil.MakeNoopLogger())

	require.NoError(t, session.Logout(ctx))

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestSession_Refresh_SingleFlight(t *testing.T) {
	ctx := context.Background()

	var refreshCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, RefreshPath, r.URL.Path)
		refreshCalls.Add(1)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-old", body["refreshToken"])

		// Hold the response so concurrent callers pile onto the same flight.
		time.Sleep(200 * time.Millisecond)
		writeJSON(t, w, model.TokenPair{AccessToken: "access-new", RefreshToken: "refresh-new"})
	}))
	defer server.Close()

	store := memory.New()
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: "access-old", RefreshToken: "refresh-old"}))

	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]model.TokenPair, callers)
	errs := make([]error, callers)

	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = session.Refresh(ctx)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), refreshCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, model.TokenPair{AccessToken: "access-new", RefreshToken: "refresh-new"}, results[i])
	}

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-new", pair.AccessToken)
}

func TestSession_Refresh_FailureClearsSession(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memory.New()
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}))

	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	_, err := session.Refresh(ctx)
	require.ErrorIs(t, err, model.ErrRefreshFailed)

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestSession_Refresh_NoRefreshToken(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

	_, err := session.Refresh(ctx)
	require.ErrorIs(t, err, model.ErrRefreshFailed)
}

func TestSession_IsAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: signTestToken(t, time.Now().Add(time.Hour))}))

		session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())
		assert.True(t, session.IsAuthenticated(ctx))
	})

	t.Run("expired token", func(t *testing.T) {
		store := memory.New()
		expired := signTestToken(t, time.Now().Add(-10*time.Minute))
		require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: expired}))

		session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

		assert.Equal(t, expired, session.AccessToken(ctx))
		assert.True(t, session.IsTokenExpired(expired))
		assert.False(t, session.IsAuthenticated(ctx))
	})

	t.Run("no token", func(t *testing.T) {
		session := NewSession(memory.New(), token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())
		assert.False(t, session.IsAuthenticated(ctx))
	})
}

func TestSession_MockMode(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/config/runtime", r.URL.Path)
		writeJSON(t, w, model.RuntimeConfig{MockAuthEnabled: true})
	}))
	defer server.Close()

	store := memory.New()
	session := NewSession(store, token.NewInspector(), server.URL, server.Client(), testutil.MakeNoopLogger())

	require.NoError(t, session.LoadRuntimeConfig(ctx))
	require.True(t, session.MockAuthEnabled())

	// No token in storage: the sentinel satisfies authentication and the
	// stream credential falls back to it.
	assert.True(t, session.IsAuthenticated(ctx))

	streamToken, err := session.StreamToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.MockToken, streamToken)

	assert.False(t, session.IsTokenExpired(model.MockToken))
}

func TestSession_StreamToken_RequiresAuth(t *testing.T) {
	ctx := context.Background()

	session := NewSession(memory.New(), token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

	_, err := session.StreamToken(ctx)
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestSession_StreamToken_RealTokenPreferred(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	access := signTestToken(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: access}))

	session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

	got, err := session.StreamToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, access, got)
}

func TestSession_ClearLocal(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	require.NoError(t, store.Set(ctx, model.TokenPair{AccessToken: "access"}))

	session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

	require.NoError(t, session.ClearLocal(ctx))

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestSession_AccessToken_StoreError(t *testing.T) {
	ctx := context.Background()

	store := &mocks.TokenStore{}
	store.On("Get", mock.Anything).Return(model.TokenPair{}, errors.New("db closed"))

	session := NewSession(store, token.NewInspector(), "http://unused", http.DefaultClient, testutil.MakeNoopLogger())

	assert.Equal(t, "", session.AccessToken(ctx))
}
