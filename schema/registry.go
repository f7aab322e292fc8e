package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrUnknownEntity is returned when resolving an entity name that was never
// registered.
var ErrUnknownEntity = errors.New("schema: unknown entity")

// Registry resolves entity names to descriptors. Declarations are built on
// first resolution and cached for the life of the registry; concurrent first
// resolutions of one name build it once.
type Registry struct {
	mu     sync.RWMutex
	decls  map[string]func() (*Descriptor, error)
	descs  map[string]*Descriptor
	flight singleflight.Group
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls: make(map[string]func() (*Descriptor, error)),
		descs: make(map[string]*Descriptor),
	}
}

// Register declares entity type T in the registry. The descriptor is built
// when first resolved.
func Register[T any](r *Registry, b *Builder[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls[b.Name()] = b.Build
	delete(r.descs, b.Name())
}

// Add registers already built descriptors.
func (r *Registry) Add(descs ...*Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descs {
		if _, ok := r.descs[d.Name]; ok {
			return fmt.Errorf("schema: entity %q registered twice", d.Name)
		}
		r.descs[d.Name] = d
	}
	return nil
}

// Resolve returns the descriptor of the named entity.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.descs[name]
	build, declared := r.decls[name]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}
	if !declared {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	v, err, _ := r.flight.Do(name, func() (any, error) {
		d, err := build()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.descs[name] = d
		r.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.decls)+len(r.descs))
	for n := range r.decls {
		seen[n] = struct{}{}
	}
	for n := range r.descs {
		seen[n] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
