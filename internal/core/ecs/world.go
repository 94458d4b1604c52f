package ecs

import (
	"fmt"

	"go.uber.org/multierr"
)

// World is the top-level ECS container. It owns the entity pool, the store
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld(capacity int) *World {
	return &World{
		pool:         NewEntityPool(capacity),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() (EntityID, error) {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// DestroyNow releases the entity's components and id immediately. Used to
// roll back a partially built entity; gameplay code queues instead.
func (w *World) DestroyNow(id EntityID) error {
	if !w.pool.Alive(id) {
		return fmt.Errorf("%w: %s", ErrStaleEntity, id)
	}
	return multierr.Append(w.registry.ReleaseAll(id), w.pool.Destroy(id))
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queuing the
// same entity twice in one tick is a no-op.
func (w *World) MarkForDestruction(id EntityID) {
	if _, dup := w.queued[id]; dup {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending returns the number of entities waiting for the next flush.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and clears their components,
// in queue order. Called by CleanupSystem at the end of each tick. Returns
// the destroyed ids and any release failures.
func (w *World) FlushDestroyQueue() ([]EntityID, error) {
	if len(w.destroyQueue) == 0 {
		return nil, nil
	}
	var errs error
	done := make([]EntityID, 0, len(w.destroyQueue))
	for _, id := range w.destroyQueue {
		if err := w.DestroyNow(id); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		done = append(done, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	clear(w.queued)
	return done, errs
}
