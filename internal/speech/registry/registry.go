// Package registry holds named backend factories. Backends register
// themselves from init so a blank import is enough to make a provider
// selectable through config.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an instance of T from flat string config.
type Factory[T any] func(config map[string]string) (T, error)

// Registry maps backend names to factories for one capability.
type Registry[T any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New creates an empty registry; kind names the capability in errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a named factory, replacing any previous one.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Open instantiates the named backend.
func (r *Registry[T]) Open(name string, config map[string]string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s backend %q (have %v)", r.kind, name, r.Names())
	}
	return factory(config)
}

// Has reports whether the named backend is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns all registered backend names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
