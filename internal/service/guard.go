package service

import (
	"context"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/model"
)

// Authenticator is what the guard needs from the auth session.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// Guard is consulted before entering a protected surface.
type Guard struct {
	session Authenticator
	logger  *logger.Logger
}

// NewGuard creates a new Guard over the given session.
func NewGuard(session Authenticator, logger *logger.Logger) *Guard {
	return &Guard{session: session, logger: logger}
}

// Check returns nil when the session may proceed, model.ErrUnauthorized
// otherwise. The caller owns the redirect-to-login behavior.
func (g *Guard) Check(ctx context.Context) error {
	if g.session.IsAuthenticated(ctx) {
		return nil
	}
	g.logger.Debug("Guard: access denied, session is not authenticated")
	return model.ErrUnauthorized
}
