// Package session holds the access token used to authorize backend calls.
//
// MemoryStore is the process-local store. SQLiteStore and RedisStore keep the
// token between CLI invocations; they satisfy the same contract and never
// surface I/O errors through Get, which reports the token as absent instead.
package session

import (
	"context"
	"sync"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

var (
	_ domain.SessionStore = (*MemoryStore)(nil)
	_ domain.SessionStore = (*SQLiteStore)(nil)
	_ domain.SessionStore = (*RedisStore)(nil)
)

// MemoryStore holds the token in memory behind a mutex.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Set stores token; the last write wins. An empty token clears the store.
func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Get returns the current token and whether one is held
func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Clear removes the token. Clearing an empty store is a no-op.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Close is a no-op; it lets MemoryStore stand in for the persistent stores.
func (s *MemoryStore) Close() error { return nil }

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error { return nil }
