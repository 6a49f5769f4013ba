package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/metrics"
	"github.com/dtroode/workdesk-client/internal/model"
)

// Endpoint path suffixes recognized by the request interceptor to exempt
// auth calls from the refresh-and-retry loop.
const (
	LoginPath   = "/api/v1/auth/login"
	RefreshPath = "/api/v1/auth/refresh"
	LogoutPath  = "/api/v1/auth/logout"

	runtimeConfigPath = "/api/v1/config/runtime"
)

// Session owns the token store and performs the login/logout/refresh
// lifecycle. It is the only mutator of the token store.
//
// Refresh is single-flight: concurrent callers share one outstanding
// refresh operation instead of racing duplicate calls, since the backend
// invalidates a refresh token on use.
type Session struct {
	store     model.TokenStore
	inspector model.TokenInspector
	http      *http.Client
	baseURL   string
	logger    *logger.Logger

	refreshGroup singleflight.Group

	mu       sync.RWMutex
	mockAuth bool
}

// NewSession creates a new Session. The http.Client must be a plain one:
// auth endpoints are never routed through the request interceptor.
func NewSession(store model.TokenStore, inspector model.TokenInspector, baseURL string, httpClient *http.Client, logger *logger.Logger) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Session{
		store:     store,
		inspector: inspector,
		http:      httpClient,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// LoadRuntimeConfig fetches the backend runtime configuration and caches
// the mock auth flag. Callers decide whether a fetch failure is fatal;
// the flag stays false until a fetch succeeds.
func (s *Session) LoadRuntimeConfig(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+runtimeConfigPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create runtime config request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch runtime config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("runtime config endpoint returned status %d", resp.StatusCode)
	}

	var rc model.RuntimeConfig
	if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
		return fmt.Errorf("failed to decode runtime config: %w", err)
	}

	s.mu.Lock()
	s.mockAuth = rc.MockAuthEnabled
	s.mu.Unlock()

	if rc.MockAuthEnabled {
		s.logger.Warn("Session: mock auth is enabled by backend runtime config")
	}

	return nil
}

// MockAuthEnabled reports whether the backend enabled mock auth.
func (s *Session) MockAuthEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mockAuth
}

// Login exchanges credentials for a token pair and stores it. On failure
// the previously stored state is left untouched.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	s.logger.Debug("Session: logging in", "login", creds.Login)

	pair, err := s.postForTokens(ctx, LoginPath, creds)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	return nil
}

// Logout best-effort notifies the backend invalidation endpoint, then
// unconditionally clears local token state regardless of the call's
// outcome. The local clear survives caller cancellation.
func (s *Session) Logout(ctx context.Context) error {
	clearCtx := context.WithoutCancel(ctx)

	if token := s.AccessToken(ctx); token != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+LogoutPath, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
			resp, doErr := s.http.Do(req)
			if doErr != nil {
				s.logger.Info("Session: logout endpoint unreachable, clearing local state anyway", "error", doErr.Error())
			} else {
				// A 401 here is not session expiry; pass it by.
				resp.Body.Close()
			}
		}
	}

	if err := s.store.Clear(clearCtx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	return nil
}

// Refresh exchanges the stored refresh token for a new pair. At most one
// refresh is outstanding at a time; concurrent callers await that same
// operation and observe its outcome. On failure the session is cleared.
func (s *Session) Refresh(ctx context.Context) (model.TokenPair, error) {
	v, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		// The outcome is shared by every waiter, so the operation must
		// not die with the first caller's context.
		return s.doRefresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return model.TokenPair{}, err
	}
	return v.(model.TokenPair), nil
}

func (s *Session) doRefresh(ctx context.Context) (model.TokenPair, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get tokens: %w", err)
	}

	if current.RefreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Error("Session: failed to clear tokens", "error", clearErr.Error())
		}
		return model.TokenPair{}, fmt.Errorf("no refresh token: %w", model.ErrRefreshFailed)
	}

	pair, err := s.postForTokens(ctx, RefreshPath, map[string]string{"refreshToken": current.RefreshToken})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		s.logger.Info("Session: refresh rejected, terminating session", "error", err.Error())
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Error("Session: failed to clear tokens", "error", clearErr.Error())
		}
		return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrRefreshFailed, err)
	}

	if err := s.store.Set(ctx, pair); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return model.TokenPair{}, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	s.logger.Debug("Session: token pair refreshed")
	return pair, nil
}

func (s *Session) postForTokens(ctx context.Context, path string, body any) (model.TokenPair, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return model.TokenPair{}, model.ErrInvalidCredentials
	default:
		return model.TokenPair{}, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	var pair model.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if pair.AccessToken == "" {
		return model.TokenPair{}, fmt.Errorf("token endpoint returned an empty access token")
	}

	return pair, nil
}

// AccessToken returns the stored access token, or empty when none is held.
func (s *Session) AccessToken(ctx context.Context) string {
	pair, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Error("Session: failed to read tokens", "error", err.Error())
		return ""
	}
	return pair.AccessToken
}

// IsTokenExpired reports whether the given access token is locally expired.
// The mock sentinel never expires while mock auth is enabled.
func (s *Session) IsTokenExpired(token string) bool {
	if token == model.MockToken && s.MockAuthEnabled() {
		return false
	}
	return s.inspector.IsExpired(token)
}

// IsAuthenticated reports whether an unexpired access token is present, or
// mock auth is active with the sentinel (or no) token.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token := s.AccessToken(ctx)
	if s.MockAuthEnabled() && (token == "" || token == model.MockToken) {
		return true
	}
	return token != "" && !s.IsTokenExpired(token)
}

// StreamToken returns the credential to embed in the stream URL. It falls
// back to the mock sentinel only when mock auth is enabled; it never allows
// an unauthenticated connection when a real token is required.
func (s *Session) StreamToken(ctx context.Context) (string, error) {
	token := s.AccessToken(ctx)
	if token != "" {
		return token, nil
	}
	if s.MockAuthEnabled() {
		return model.MockToken, nil
	}
	return "", fmt.Errorf("no access token for stream: %w", model.ErrUnauthorized)
}

// ClearLocal drops the stored token pair without a network call. Used by
// the request interceptor when it detects local expiry.
func (s *Session) ClearLocal(ctx context.Context) error {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
