package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/metrics"
	"github.com/dtroode/workdesk-client/internal/model"
	"github.com/dtroode/workdesk-client/internal/service"
)

// SessionManager is what the interceptor needs from the auth session.
type SessionManager interface {
	AccessToken(ctx context.Context) string
	IsTokenExpired(token string) bool
	Refresh(ctx context.Context) (model.TokenPair, error)
	ClearLocal(ctx context.Context) error
}

// Interceptor is an http.RoundTripper wrapping every outbound API call.
// It attaches bearer credentials, short-circuits locally expired tokens
// before any network round-trip, and on a 401 performs a single
// coordinated refresh followed by at most one retry.
//
// Calls to the auth endpoints themselves bypass the refresh-and-retry
// path to prevent recursion.
type Interceptor struct {
	base    http.RoundTripper
	session SessionManager
	logger  *logger.Logger
}

var _ http.RoundTripper = (*Interceptor)(nil)

// NewInterceptor creates a new Interceptor over the given base transport.
func NewInterceptor(base http.RoundTripper, session SessionManager, logger *logger.Logger) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Interceptor{base: base, session: session, logger: logger}
}

func isAuthPath(path string) bool {
	return strings.HasSuffix(path, service.LoginPath) ||
		strings.HasSuffix(path, service.RefreshPath) ||
		strings.HasSuffix(path, service.LogoutPath)
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if isAuthPath(req.URL.Path) {
		return i.base.RoundTrip(req)
	}

	token := i.session.AccessToken(ctx)
	if token == "" {
		// No credentials held: forward unauthenticated and let the
		// backend decide.
		return i.base.RoundTrip(req)
	}

	if i.session.IsTokenExpired(token) {
		if err := i.session.ClearLocal(ctx); err != nil {
			i.logger.Error("Interceptor: failed to clear session", "error", err.Error())
		}
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, model.ErrTokenExpired)
	}

	resp, err := i.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// 401: one coordinated refresh, then at most one retry. Concurrent
	// requests observing a 401 while a refresh is outstanding share it.
	drain(resp)

	requestID, _ := RequestIDFromContext(ctx)
	i.logger.Debug("Interceptor: got 401, refreshing session",
		"path", req.URL.Path,
		"request_id", requestID)

	pair, refreshErr := i.session.Refresh(ctx)
	if refreshErr != nil {
		// Session is already cleared by the refresh failure path.
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, refreshErr)
	}

	retry, rewindErr := rewind(req)
	if rewindErr != nil {
		i.logger.Info("Interceptor: request body is not replayable, not retrying",
			"path", req.URL.Path,
			"request_id", requestID)
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, model.ErrUnauthorized)
	}

	metrics.RequestRetries.Inc()

	resp, err = i.base.RoundTrip(withBearer(retry, pair.AccessToken))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Residual 401 after the single retry: never loop, terminate the
		// session and surface the response as-is.
		if clearErr := i.session.ClearLocal(ctx); clearErr != nil {
			i.logger.Error("Interceptor: failed to clear session", "error", clearErr.Error())
		}
	}

	return resp, nil
}

// withBearer clones the request with the Authorization header attached.
// RoundTrippers must not mutate the caller's request.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// rewind produces a replayable copy of the request for the single retry.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	out.Body = body
	return out, nil
}

// drain discards and closes a response body so the underlying connection
// can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
