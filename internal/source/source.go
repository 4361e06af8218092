// Package source defines the adapter contract for external publication
// sources and the adapters themselves. Each adapter independently fetches
// and pre-scores candidate records for a subject; failures never propagate
// past the adapter boundary into its siblings.
package source

import (
	"context"
	"sync"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// Adapter fetches candidate records for a subject from one provider.
// Implementations bound their own request timeouts and result volume.
// An error return means zero usable candidates from that provider; the
// orchestrator records it but never aborts the run.
type Adapter interface {
	// Name returns the provider identifier, matching the Source tag on
	// the candidates it emits.
	Name() string
	// Fetch retrieves and pre-scores candidates for the subject.
	Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error)
}

// Registry manages the available source adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registration order is preserved and becomes the
// dispatch order during aggregation.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.Name()]; !exists {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns an adapter by name, or nil if not registered.
func (r *Registry) Get(name string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// All returns the registered adapters in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Names returns the registered adapter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
