package agentconfig

import (
	"fmt"
	"sync"
)

// Registry caches resolved configs by id so repeated lookups (e.g. across
// many benchmark tasks in one run) don't re-walk the extends chain.
type Registry struct {
	mu       sync.RWMutex
	loader   *Loader
	resolved map[string]*Config
}

// NewRegistry creates a Registry backed by loader.
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:   loader,
		resolved: make(map[string]*Config),
	}
}

// Get returns the resolved config for id, resolving and caching it on first
// access. The returned value is a defensive copy; callers may not mutate the
// cached entry through it.
func (r *Registry) Get(id string) (*Config, error) {
	r.mu.RLock()
	if cfg, ok := r.resolved[id]; ok {
		r.mu.RUnlock()
		cp := *cfg
		return &cp, nil
	}
	r.mu.RUnlock()

	cfg, err := r.loader.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("resolve agent %q: %w", id, err)
	}

	r.mu.Lock()
	r.resolved[id] = cfg
	r.mu.Unlock()

	cp := *cfg
	return &cp, nil
}
