package store

import (
	"context"
	"sync"

	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// MemoryStore provides thread-safe in-memory storage for guild configs
type MemoryStore struct {
	specs sync.Map // map[string]cooldown.ConfigSpec
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get retrieves the config for a given guild
func (s *MemoryStore) Get(_ context.Context, guildID string) (cooldown.ConfigSpec, error) {
	val, ok := s.specs.Load(guildID)
	if !ok {
		return nil, cooldown.ErrConfigNotFound
	}
	return clone(val.(cooldown.ConfigSpec)), nil
}

// Set stores the config for a given guild
func (s *MemoryStore) Set(_ context.Context, guildID string, spec cooldown.ConfigSpec) error {
	s.specs.Store(guildID, clone(spec))
	return nil
}

// Delete removes the config for a given guild
func (s *MemoryStore) Delete(_ context.Context, guildID string) error {
	s.specs.Delete(guildID)
	return nil
}

// clone copies the entry slice so callers can't mutate stored specs
func clone(spec cooldown.ConfigSpec) cooldown.ConfigSpec {
	if spec == nil {
		return cooldown.ConfigSpec{}
	}
	out := make(cooldown.ConfigSpec, len(spec))
	copy(out, spec)
	return out
}
