package slotpool

import "go.uber.org/multierr"

// Zip walks two pools in lockstep by slot index and calls fn on every index
// live in both. The pools carry no proof that their indices correspond:
// callers must create and destroy entries in both pools in the same order.
//
// An index live in only one pool is skipped and reported as a *DesyncError;
// all such indices of one pass are combined into the returned error.
func Zip[A, B any](a *Pool[A], b *Pool[B], fn func(*A, *B)) error {
	return zip(a, b, func(sa *slot[A], sb *slot[B]) { fn(&sa.value, &sb.value) })
}

// ZipConst is Zip with values passed by copy.
func ZipConst[A, B any](a *Pool[A], b *Pool[B], fn func(A, B)) error {
	return zip(a, b, func(sa *slot[A], sb *slot[B]) { fn(sa.value, sb.value) })
}

func zip[A, B any](a *Pool[A], b *Pool[B], visit func(*slot[A], *slot[B])) error {
	shared := min(a.highWater, b.highWater)

	var errs error
	for i := 0; i < shared; i++ {
		sa, sb := &a.slots[i], &b.slots[i]
		switch {
		case sa.occupied && sb.occupied:
			visit(sa, sb)
		case sa.occupied || sb.occupied:
			errs = multierr.Append(errs, &DesyncError{Index: i, ActiveInA: sa.occupied, ActiveInB: sb.occupied})
		}
	}

	// Whatever is live past the shorter high-water mark has no partner.
	for i := shared; i < a.highWater; i++ {
		if a.slots[i].occupied {
			errs = multierr.Append(errs, &DesyncError{Index: i, ActiveInA: true})
		}
	}
	for i := shared; i < b.highWater; i++ {
		if b.slots[i].occupied {
			errs = multierr.Append(errs, &DesyncError{Index: i, ActiveInB: true})
		}
	}
	return errs
}
