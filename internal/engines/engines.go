// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engines provides the search back-end adapter interface, a registry
// of concrete adapters keyed by identifier, and the HTTP adapters for the
// built-in back-ends. The orchestrator treats every adapter as an opaque
// asynchronous operation returning (results, error).
package engines

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// Adapter turns a structured query into raw candidate results from one
// back-end. Implementations must respect ctx cancellation and should return
// partial results plus an error rather than blocking indefinitely.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query types.SearchQuery, limit int) ([]types.CandidateResult, error)
}

// Registry is a lookup table of adapters keyed by engine identifier.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same identifier twice is an
// error: a tier plan must be able to address every engine unambiguously.
func (r *Registry) Register(a Adapter) error {
	name := a.Name()
	if name == "" {
		return fmt.Errorf("adapter has no name")
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("engine %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// DefaultRegistry builds a registry with every built-in adapter sharing one
// HTTP client. keys holds credentials by secret name (see the secrets
// package); adapters that can authenticate pick theirs out, the rest run
// anonymously.
func DefaultRegistry(client *http.Client, cfg types.HTTPConfig, keys map[string]string) *Registry {
	r := NewRegistry()
	r.Register(&DuckDuckGo{Client: client, Config: cfg})
	r.Register(&Wikipedia{Client: client, Config: cfg})
	r.Register(&HackerNews{Client: client, Config: cfg, APIKey: keys["algolia-api-key"]})
	return r
}

// Get returns the adapter for an engine identifier.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered engine identifiers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
