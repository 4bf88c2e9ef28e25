package agent

import (
	"fmt"
	"sync"
)

// Registry is the process-wide name to agent mapping. Registration happens
// during startup; reads dominate afterwards, so an RWMutex guards both and
// later writes stay safe.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: map[string]*Agent{}}
}

// RegisterOptions configure Register.
type RegisterOptions struct {
	// Overwrite replaces an existing registration instead of failing. The
	// agent keeps its original position in the insertion order.
	Overwrite bool
}

// Register adds an agent. A taken name fails with ErrDuplicateAgent unless
// Overwrite is set.
func (r *Registry) Register(ag *Agent, optFns ...func(o *RegisterOptions)) error {
	var opts RegisterOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if ag == nil {
		return fmt.Errorf("cannot register a nil agent")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[ag.Name]; exists {
		if !opts.Overwrite {
			return fmt.Errorf("%q: %w", ag.Name, ErrDuplicateAgent)
		}
		r.agents[ag.Name] = ag
		return nil
	}
	r.agents[ag.Name] = ag
	r.order = append(r.order, ag.Name)
	return nil
}

// Unregister removes an agent. Unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[name]; !ok {
		return
	}
	delete(r.agents, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up an agent by name.
func (r *Registry) Get(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ag, ok := r.agents[name]
	return ag, ok
}

// IsRegistered reports whether the name is taken.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// All returns every agent in insertion order. The supervisor prompt is built
// from this sequence, so the ordering is part of the routing contract.
func (r *Registry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.order))
	for _, name := range r.order {
		agents = append(agents, r.agents[name])
	}
	return agents
}

// Len reports the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
