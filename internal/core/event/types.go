package event

import "github.com/altplanet/engine/internal/core/ecs"

type ActorSpawned struct {
	EntityID ecs.EntityID
	Name     string
	Slot     int
}

type ActorDespawned struct {
	EntityID ecs.EntityID
	Name     string
}

// PoolDesynced is emitted when a zipped traversal found misaligned slots.
type PoolDesynced struct {
	Pools string // "bodies/transforms", ...
	Err   error
}
