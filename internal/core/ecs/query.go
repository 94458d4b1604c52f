package ecs

import "github.com/altplanet/engine/internal/core/slotpool"

// Each2 iterates entities that have both component A and B by pairing the
// two stores slot for slot. Both stores must have been filled in lockstep;
// any misaligned slot is skipped and reported as slotpool.ErrPoolDesync.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(*A, *B)) error {
	return slotpool.Zip(sa.pool, sb.pool, fn)
}
