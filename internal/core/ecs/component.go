package ecs

import (
	"fmt"

	"github.com/altplanet/engine/internal/core/slotpool"
)

// Releaser is implemented by all component stores so the Registry can
// bulk-release an entity's data from every store on destroy.
type Releaser interface {
	Release(id EntityID) error
}

// Store is a component table backed by a fixed-capacity slot pool. Stores
// filled and emptied in the same order share slot indices, which is what
// Each2 relies on.
type Store[T any] struct {
	pool    *slotpool.Pool[T]
	handles map[EntityID]slotpool.Handle
}

func NewStore[T any](capacity int, opts ...slotpool.Option[T]) (*Store[T], error) {
	pool, err := slotpool.New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Store[T]{
		pool:    pool,
		handles: make(map[EntityID]slotpool.Handle, capacity),
	}, nil
}

// Insert stores c for id and returns a pointer into the pool.
func (s *Store[T]) Insert(id EntityID, c T) (*T, error) {
	if _, ok := s.handles[id]; ok {
		return nil, fmt.Errorf("ecs: %s already has a %T component", id, c)
	}
	h, err := s.pool.Create(c)
	if err != nil {
		return nil, err
	}
	s.handles[id] = h
	return s.pool.Get(h)
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	h, ok := s.handles[id]
	if !ok {
		return nil, false
	}
	c, err := s.pool.Get(h)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Handle returns the slot handle that holds id's component.
func (s *Store[T]) Handle(id EntityID) (slotpool.Handle, bool) {
	h, ok := s.handles[id]
	return h, ok
}

// Release destroys id's component. Entities without one are ignored.
func (s *Store[T]) Release(id EntityID) error {
	h, ok := s.handles[id]
	if !ok {
		return nil
	}
	delete(s.handles, id)
	return s.pool.Destroy(h)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.handles[id]
	return ok
}

func (s *Store[T]) Len() int { return s.pool.Len() }

// Pool exposes the backing pool for zipped traversal and metrics.
func (s *Store[T]) Pool() *slotpool.Pool[T] { return s.pool }

// Each visits components in slot order.
func (s *Store[T]) Each(fn func(*T)) {
	s.pool.ForEach(func(_ slotpool.Handle, c *T) { fn(c) })
}

// Clear drops every component, running the pool's teardown for each.
func (s *Store[T]) Clear() {
	s.pool.Clear()
	clear(s.handles)
}
