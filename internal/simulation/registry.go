package simulation

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live simulation sessions by ID. Sessions are in-memory
// only; they do not survive a restart.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
	}
}

// Add registers an engine and returns its generated simulation ID.
func (r *Registry) Add(engine *Engine) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.engines[id] = engine
	r.mu.Unlock()

	return id
}

func (r *Registry) Get(id string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[id]
	return engine, ok
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[id]; !ok {
		return false
	}

	delete(r.engines, id)
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
