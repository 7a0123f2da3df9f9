package theme

import (
	"context"
	"errors"
	"sync"
)

// PersistenceGateway loads and stores configuration documents per scope
// (one scope per tenant). Load reports false when nothing was saved yet.
type PersistenceGateway interface {
	Load(ctx context.Context, scope string) (Config, bool, error)
	Save(ctx context.Context, scope string, cfg Config) error
}

// Save serializes s at call time and hands the document to gw. Later
// edits to s are not part of this save.
func Save(ctx context.Context, gw PersistenceGateway, scope string, s *Session) (Config, error) {
	cfg := s.Config()
	if err := cfg.Validate(s.registry); err != nil {
		return Config{}, err
	}
	if err := gw.Save(ctx, scope, cfg); err != nil {
		return Config{}, persistenceError("save theme config", err)
	}
	return cfg, nil
}

// Load opens a session for scope from its saved document, or from the
// registry defaults of fallbackTheme when nothing was saved.
func Load(ctx context.Context, gw PersistenceGateway, reg *Registry, scope, fallbackTheme string, opts ...SessionOption) (*Session, error) {
	cfg, ok, err := gw.Load(ctx, scope)
	if err != nil {
		return nil, persistenceError("load theme config", err)
	}
	if !ok {
		return NewSession(reg, fallbackTheme, opts...)
	}
	return OpenSession(ctx, reg, cfg, opts...)
}

func persistenceError(op string, err error) error {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr
	}
	return &PersistenceError{Op: op, Err: err}
}

// MemoryGateway keeps documents in process memory.
type MemoryGateway struct {
	mu   sync.RWMutex
	docs map[string]Config
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{docs: make(map[string]Config)}
}

func (g *MemoryGateway) Load(_ context.Context, scope string) (Config, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cfg, ok := g.docs[scope]
	return cfg, ok, nil
}

func (g *MemoryGateway) Save(_ context.Context, scope string, cfg Config) error {
	sections := make(map[string]SectionState, len(cfg.Sections))
	for id, st := range cfg.Sections {
		sections[id] = st
	}
	cfg.Sections = sections
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[scope] = cfg
	return nil
}
