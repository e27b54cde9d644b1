package search

import (
	"fmt"
	"slices"
)

type registration struct {
	name string
	ctor Constructor
}

// Registry maps category → backend name → engine constructor. It is filled
// during process initialization and only read afterwards.
type Registry struct {
	entries   map[Category][]registration
	reference map[Category]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[Category][]registration),
		reference: make(map[Category]string),
	}
}

// Register adds a backend. Registering the same name twice in a category is a
// programming error and panics.
func (r *Registry) Register(category Category, name string, ctor Constructor) *Registry {
	if ctor == nil {
		panic(fmt.Sprintf("search: nil constructor for %s/%s", category, name))
	}
	for _, e := range r.entries[category] {
		if e.name == name {
			panic(fmt.Sprintf("search: backend %s/%s registered twice", category, name))
		}
	}
	r.entries[category] = append(r.entries[category], registration{name: name, ctor: ctor})
	return r
}

// SetReference marks the backend that is always queried for the category,
// regardless of the requested backend set.
func (r *Registry) SetReference(category Category, name string) *Registry {
	r.reference[category] = name
	return r
}

func (r *Registry) Reference(category Category) (string, bool) {
	name, ok := r.reference[category]
	if !ok {
		return "", false
	}
	if _, err := r.Resolve(category, name); err != nil {
		return "", false
	}
	return name, true
}

func (r *Registry) Has(category Category) bool {
	return len(r.entries[category]) > 0
}

func (r *Registry) Categories() []Category {
	out := make([]Category, 0, len(r.entries))
	for c := range r.entries {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// List returns the registered backend names in registration order.
func (r *Registry) List(category Category) []string {
	entries := r.entries[category]
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Resolve returns the constructor of a registered backend.
func (r *Registry) Resolve(category Category, name string) (Constructor, error) {
	for _, e := range r.entries[category] {
		if e.name == name {
			return e.ctor, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnknownBackend, category, name)
}
