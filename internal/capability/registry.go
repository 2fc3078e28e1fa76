package capability

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateCapability is returned when registering a name twice.
	ErrDuplicateCapability = errors.New("capability already registered")

	// ErrUnknownCapability is returned when looking up an unregistered name.
	ErrUnknownCapability = errors.New("unknown capability")
)

// Registry maps capability names to their descriptors. Registration happens
// at process start; lookups dominate afterwards, so a read-mostly lock is
// sufficient.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]*Descriptor)}
}

// Register adds a descriptor. It fails if the name is already taken or the
// descriptor is incomplete.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if d.Invoke == nil {
		return fmt.Errorf("capability %q has no invoke function", d.Name)
	}
	if !validClassifications[d.Classification] {
		return fmt.Errorf("capability %q has invalid classification %q", d.Name, d.Classification)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, d.Name)
	}
	r.caps[d.Name] = d
	return nil
}

// Lookup returns the descriptor for the given name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return d, nil
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered descriptors in name order.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]*Descriptor, 0, len(r.caps))
	for _, d := range r.caps {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}
