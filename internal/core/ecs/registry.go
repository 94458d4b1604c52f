package ecs

import "go.uber.org/multierr"

// Registry tracks all component stores and releases an entity from each of
// them on destroy, always in registration order.
type Registry struct {
	stores []Releaser
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Releaser, 0, 8),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Releaser) {
	r.stores = append(r.stores, store)
}

// ReleaseAll clears the given entity from every registered store. A failing
// store does not stop the others.
func (r *Registry) ReleaseAll(id EntityID) error {
	var errs error
	for _, s := range r.stores {
		errs = multierr.Append(errs, s.Release(id))
	}
	return errs
}

func (r *Registry) Len() int { return len(r.stores) }
