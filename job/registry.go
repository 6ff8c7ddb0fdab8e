package job

import (
	"context"
	"sync"
)

// HandlerFunc executes one attempt of a job. It receives the per-attempt
// Context and returns a Result, or an error when the attempt failed
// without producing one. Handlers must honor ctx cancellation — the
// runner cannot preempt a non-cooperative handler.
type HandlerFunc func(ctx context.Context, jc *Context) (*Result, error)

// Registry maps job IDs to handler functions. Each Runner owns its own
// Registry — handler state is never process-global, so multiple runners
// (e.g., in tests) do not share registrations. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a job ID, replacing any previous binding.
func (r *Registry) Register(jobID string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobID] = h
}

// Get returns the handler for the given job ID.
// Returns false if no handler is registered.
func (r *Registry) Get(jobID string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobID]
	return h, ok
}

// Names returns all registered job IDs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
