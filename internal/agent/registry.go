// Package agent is a small linux-dash compatible agent. It serves named
// modules over the HTTP endpoint and, optionally, the websocket push
// channel, so the dashboard can run against a machine without the
// original agent installed.
package agent

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rileyhilliard/ldash/internal/errors"
)

// Module produces the current output of one module. The result is encoded
// as JSON.
type Module func(ctx context.Context) (interface{}, error)

// Static returns a module that always answers v.
func Static(v interface{}) Module {
	return func(context.Context) (interface{}, error) {
		return v, nil
	}
}

// Raw returns a module answering a fixed JSON document.
func Raw(doc string) Module {
	return Static(json.RawMessage(doc))
}

// Registry maps module names to implementations. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds or replaces module name.
func (r *Registry) Register(name string, m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = m
}

// Lookup returns module name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names lists registered modules, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var errUnknownModule = errors.New(errors.ErrAgent, "Unknown module", "Check the module name against the agent module list")

// Run executes module name and encodes its output.
func (r *Registry) Run(ctx context.Context, name string) ([]byte, error) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, errUnknownModule
	}

	v, err := m(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAgent,
			"Module "+name+" failed", "")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAgent,
			"Module "+name+" returned output that cannot be encoded", "")
	}
	return out, nil
}
