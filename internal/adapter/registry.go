// Registry resolves a configured link kind ("serial", "mock") to the single
// Adapter that implements it, grounded on the teacher's factory-of-backends
// idiom (internal/adapter/registry.go) but narrowed from a per-robot
// robotID->adapter map to a single active gateway link, since a DotBot
// gateway owns exactly one physical or simulated link at a time.
package adapter

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Factory builds an Adapter for a given link kind.
type Factory func(logger *zap.Logger) (Adapter, error)

// Registry maps link-kind names to their constructors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

// NewRegistry returns an empty link-kind registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{factories: make(map[string]Factory), logger: logger}
}

// Register associates kind with a constructor. Re-registering a kind
// replaces its constructor.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
	r.logger.Info("registered adapter factory", zap.String("kind", kind))
}

// Build constructs the Adapter registered under kind.
func (r *Registry) Build(kind string) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("adapter: unknown link kind %q", kind)
	}
	return factory(r.logger.With(zap.String("link_kind", kind)))
}

// Kinds lists the registered link-kind names.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
