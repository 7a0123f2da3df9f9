package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     TokenData
	edit      EditCheckpoint
	expiresAt time.Time
}

// MemoryStore is a single-process store with the same expiry semantics
// as RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	refresh map[string]memoryEntry
	revoked map[string]time.Time
	edits   map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		refresh: make(map[string]memoryEntry),
		revoked: make(map[string]time.Time),
		edits:   make(map[string]memoryEntry),
	}
}

// WithClock replaces the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash string, data TokenData, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = s.now().UTC()
	}
	s.refresh[tokenHash] = memoryEntry{token: data, expiresAt: s.now().Add(refreshTTL(expiresAt))}
	return nil
}

func (s *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (TokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.refresh[tokenHash]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.refresh, tokenHash)
		return TokenData{}, ErrNotFound
	}
	if e.token.Role == "" {
		e.token.Role = "viewer"
	}
	return e.token, nil
}

func (s *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, tokenHash)
	return nil
}

func (s *MemoryStore) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = exp
	return nil
}

func (s *MemoryStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) SaveEdit(_ context.Context, cp EditCheckpoint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[cp.ID] = memoryEntry{edit: cp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) LoadEdit(_ context.Context, id string) (EditCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edits[id]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.edits, id)
		return EditCheckpoint{}, ErrNotFound
	}
	return e.edit, nil
}

func (s *MemoryStore) DeleteEdit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edits, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
