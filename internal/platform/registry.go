package platform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds all registered platform adapters. Orchestration and handlers
// select adapters by map lookup instead of branching on platform names, so a
// new platform only needs a Register call at wiring time.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Type]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Type]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter is nil")
	}
	t := Type(strings.ToLower(strings.TrimSpace(adapter.Type().String())))
	if t == "" {
		return errors.New("platform type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[t]; exists {
		return fmt.Errorf("platform type already registered: %s", t)
	}
	r.adapters[t] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given platform type.
func (r *Registry) Get(t Type) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[Type(strings.ToLower(strings.TrimSpace(t.String())))]
	return adapter, ok
}

// List returns all registered adapters ordered by platform type.
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Type() < items[j].Type()
	})
	return items
}

// Types returns all registered platform types.
func (r *Registry) Types() []Type {
	items := r.List()
	types := make([]Type, 0, len(items))
	for _, a := range items {
		types = append(types, a.Type())
	}
	return types
}
