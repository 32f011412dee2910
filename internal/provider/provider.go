// Package provider supplies point-in-time fundamentals snapshots.
// Implementations are read-only data sources; degraded data is reported
// through the snapshot's quality record, never by guessing values.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/seenimoa/coveredcall/pkg/models"
)

var ErrUnknownProvider = errors.New("provider: unknown provider")

// Provider fetches a fundamentals snapshot for a ticker.
type Provider interface {
	// Name returns the provider identifier (e.g., "stub", "yahoo").
	Name() string

	// Fetch returns a snapshot for the ticker. Unavailable fields are
	// left nil and recorded in the snapshot's quality record.
	Fetch(ctx context.Context, ticker string) (*models.Snapshot, error)
}

// Registry maps provider names to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Overwrites if already registered.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.names(), ", "))
	}
	return p, nil
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewStubProvider())
	r.Register(NewYahooProvider())
	return r
}
