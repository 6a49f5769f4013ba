package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/workdesk-client/internal/model"
	"github.com/dtroode/workdesk-client/internal/testutil"
)

type stubAuthenticator struct {
	authenticated bool
}

func (s *stubAuthenticator) IsAuthenticated(_ context.Context) bool {
	return s.authenticated
}

func TestGuard_Check(t *testing.T) {
	ctx := context.Background()

	guard := NewGuard(&stubAuthenticator{authenticated: true}, testutil.MakeNoopLogger())
	require.NoError(t, guard.Check(ctx))

	guard = NewGuard(&stubAuthenticator{authenticated: false}, testutil.MakeNoopLogger())
	err := guard.Check(ctx)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
