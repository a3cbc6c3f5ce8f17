package function

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps function names and aliases to descriptors. Lookups are
// case-insensitive.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	names  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register validates d and adds it under its name and aliases.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	keys := append([]string{d.Name}, d.Aliases...)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if _, exists := r.byName[strings.ToLower(k)]; exists {
			return fmt.Errorf("function %s already registered", k)
		}
	}
	for _, k := range keys {
		r.byName[strings.ToLower(k)] = d
	}
	r.names = append(r.names, d.Name)
	sort.Strings(r.names)
	return nil
}

// MustRegister is Register that panics on error. Used while populating the
// built-in registry.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup finds a descriptor by name or alias.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[strings.ToLower(name)]
	return d, ok
}

// Names returns the canonical names of all registered functions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

var builtins = NewRegistry()

func init() {
	registerStringFunctions(builtins)
	registerNumericFunctions(builtins)
}

// Builtins returns the registry holding the built-in functions. It is
// populated at start-up and must be treated as read-only.
func Builtins() *Registry {
	return builtins
}
