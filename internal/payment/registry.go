package payment

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the configured providers and the default used for checkout.
type Registry struct {
	providers map[string]Provider
	def       string
}

// NewRegistry registers providers; the first one is the checkout default.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		name := strings.ToLower(p.Name())
		if r.def == "" {
			r.def = name
		}
		r.providers[name] = p
	}
	return r
}

// Default returns the provider used for new checkouts.
func (r *Registry) Default() (Provider, error) {
	return r.Get(r.def)
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
