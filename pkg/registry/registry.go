package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/formwire/pkg/ports"
)

// Registry manages the submit handlers that form definitions reference by
// name in on_submit.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.SubmitHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ports.SubmitHandler),
	}
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, h ports.SubmitHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterFunc registers a plain function.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error)) {
	r.Register(name, ports.SubmitHandlerFunc(fn))
}

// Lookup returns the named handler.
func (r *Registry) Lookup(name string) (ports.SubmitHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Submit looks up a handler by name and executes it.
// Returns an error if the handler is not found.
func (r *Registry) Submit(ctx context.Context, name string, req ports.SubmitRequest) (ports.SubmitResult, error) {
	h, ok := r.Lookup(name)
	if !ok {
		return ports.SubmitResult{}, fmt.Errorf("submit handler not found: %s", name)
	}
	return h.Submit(ctx, req)
}
