package memory

import (
	"context"
	"sync"

	"github.com/dtroode/workdesk-client/internal/model"
)

var _ model.TokenStore = (*Store)(nil)

// Store implements model.TokenStore in memory. Used by tests and ephemeral
// runs that should not touch the durable token database.
type Store struct {
	mu   sync.RWMutex
	pair model.TokenPair
}

// New creates an empty in-memory token store.
func New() *Store {
	return &Store{}
}

func (s *Store) Get(_ context.Context) (model.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *Store) Set(_ context.Context, pair model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = model.TokenPair{}
	return nil
}
