// Package slotpool implements a fixed-capacity slot pool: stable handles to
// stored values, O(1) create/destroy through an index-linked free list, and
// lockstep traversal of two pools whose entries are paired by slot index.
//
// A Pool is owned by a single goroutine (the game loop). No locking.
package slotpool

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// noNext terminates the free chain.
const noNext int32 = -1

// poolIDCounter hands out process-unique pool ids so handles can be tied
// to the pool that issued them.
var poolIDCounter atomic.Uint32

// slot is one storage cell. occupied is the active/free tag; next is only
// meaningful while the slot is free.
type slot[T any] struct {
	value    T
	next     int32
	occupied bool
}

// Stats is a point-in-time view of pool occupancy.
type Stats struct {
	Capacity  int
	Live      int
	HighWater int
}

// Pool is a fixed-capacity arena of T values addressed by Handle.
type Pool[T any] struct {
	id        uint32
	name      string
	slots     []slot[T]
	free      int32 // free-list head, noNext when exhausted
	live      int
	highWater int // one past the highest index ever occupied
	closed    bool

	teardown func(*T)
	log      *zap.Logger
}

// Option configures a Pool at construction.
type Option[T any] func(*Pool[T])

// WithTeardown registers logic run exactly once for every value that leaves
// the pool, via Destroy, Clear or Close.
func WithTeardown[T any](fn func(*T)) Option[T] {
	return func(p *Pool[T]) { p.teardown = fn }
}

// WithLogger enables debug logging of slot churn and warnings on misuse.
func WithLogger[T any](log *zap.Logger) Option[T] {
	return func(p *Pool[T]) { p.log = log }
}

// WithName labels the pool in logs and metrics.
func WithName[T any](name string) Option[T] {
	return func(p *Pool[T]) { p.name = name }
}

// New allocates a pool with room for exactly capacity values. The storage is
// never resized.
func New[T any](capacity int, opts ...Option[T]) (*Pool[T], error) {
	if capacity < 1 || int64(capacity) > int64(^uint32(0)>>1) {
		return nil, fmt.Errorf("slotpool: invalid capacity %d", capacity)
	}
	p := &Pool[T]{
		id:    poolIDCounter.Add(1),
		slots: make([]slot[T], capacity),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.resetFreeList()
	return p, nil
}

// resetFreeList threads every slot into the initial chain 0→1→…→N-1.
func (p *Pool[T]) resetFreeList() {
	last := int32(len(p.slots) - 1)
	for i := range p.slots {
		p.slots[i].next = int32(i) + 1
	}
	p.slots[last].next = noNext
	p.free = 0
	p.live = 0
	p.highWater = 0
}

// acquire pops the free-list head. Caller has checked live < capacity.
func (p *Pool[T]) acquire() int32 {
	idx := p.free
	s := &p.slots[idx]
	p.free = s.next
	s.next = noNext
	s.occupied = true
	return idx
}

// release pushes idx back at the head, so it is the next slot handed out.
func (p *Pool[T]) release(idx int32) {
	s := &p.slots[idx]
	var zero T
	s.value = zero
	s.occupied = false
	s.next = p.free
	p.free = idx
}

// Create stores v in a free slot and returns its handle.
func (p *Pool[T]) Create(v T) (Handle, error) {
	return p.CreateFunc(func() T { return v })
}

// CreateFunc acquires a slot and constructs its value with ctor. ctor runs
// exactly once, after a slot is known to be available.
func (p *Pool[T]) CreateFunc(ctor func() T) (Handle, error) {
	if p.closed {
		return Handle{}, ErrClosed
	}
	if p.live == len(p.slots) {
		p.log.Warn("slot pool full",
			zap.String("pool", p.name),
			zap.Int("capacity", len(p.slots)))
		return Handle{}, fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, len(p.slots))
	}
	v := ctor() // a panicking ctor must not leave a half-acquired slot
	idx := p.acquire()
	p.slots[idx].value = v
	p.live++
	if int(idx) >= p.highWater {
		p.highWater = int(idx) + 1
	}
	p.log.Debug("slot created", zap.String("pool", p.name), zap.Int32("index", idx))
	return Handle{pool: p.id, index: uint32(idx)}, nil
}

// Destroy tears down the value behind h and frees its slot. A handle that is
// foreign, already destroyed or out of range is reported and leaves the pool
// untouched.
func (p *Pool[T]) Destroy(h Handle) error {
	if p.closed {
		return ErrClosed
	}
	idx, err := p.check(h)
	if err != nil {
		p.log.Warn("destroy of invalid handle",
			zap.String("pool", p.name),
			zap.Stringer("handle", h))
		return err
	}
	if p.teardown != nil {
		p.teardown(&p.slots[idx].value)
	}
	p.release(idx)
	p.live--
	p.log.Debug("slot destroyed", zap.String("pool", p.name), zap.Int32("index", idx))
	return nil
}

// check resolves h to an occupied slot index of this pool.
func (p *Pool[T]) check(h Handle) (int32, error) {
	if h.pool != p.id {
		return 0, fmt.Errorf("%w: %s not issued by this pool", ErrInvalidHandle, h)
	}
	return p.checkIndex(int(h.index))
}

func (p *Pool[T]) checkIndex(index int) (int32, error) {
	if index < 0 || index >= len(p.slots) {
		return 0, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidHandle, index, len(p.slots))
	}
	if !p.slots[index].occupied {
		return 0, fmt.Errorf("%w: slot %d is free", ErrInvalidHandle, index)
	}
	return int32(index), nil
}

// Active reports whether h refers to a live value in this pool.
func (p *Pool[T]) Active(h Handle) bool {
	_, err := p.check(h)
	return err == nil
}

// Get returns a pointer to the value behind h. The pointer is valid until h
// is destroyed.
func (p *Pool[T]) Get(h Handle) (*T, error) {
	idx, err := p.check(h)
	if err != nil {
		return nil, err
	}
	return &p.slots[idx].value, nil
}

// At returns the value stored at a raw slot index.
func (p *Pool[T]) At(index int) (*T, error) {
	idx, err := p.checkIndex(index)
	if err != nil {
		return nil, err
	}
	return &p.slots[idx].value, nil
}

// HandleAt returns the handle of the live value at index.
func (p *Pool[T]) HandleAt(index int) (Handle, error) {
	idx, err := p.checkIndex(index)
	if err != nil {
		return Handle{}, err
	}
	return Handle{pool: p.id, index: uint32(idx)}, nil
}

// Set overwrites the value behind h.
func (p *Pool[T]) Set(h Handle, v T) error {
	if p.closed {
		return ErrClosed
	}
	idx, err := p.check(h)
	if err != nil {
		return err
	}
	p.slots[idx].value = v
	return nil
}

// ForEach visits every live value in slot-index order. Only indices below
// the high-water mark are scanned. fn must not create or destroy entries.
func (p *Pool[T]) ForEach(fn func(Handle, *T)) {
	for i := 0; i < p.highWater; i++ {
		s := &p.slots[i]
		if s.occupied {
			fn(Handle{pool: p.id, index: uint32(i)}, &s.value)
		}
	}
}

// ForEachConst is ForEach with values passed by copy.
func (p *Pool[T]) ForEachConst(fn func(Handle, T)) {
	for i := 0; i < p.highWater; i++ {
		s := &p.slots[i]
		if s.occupied {
			fn(Handle{pool: p.id, index: uint32(i)}, s.value)
		}
	}
}

// Clear tears down every live value once and restores the initial free
// chain. Handles issued before Clear are invalid afterwards.
func (p *Pool[T]) Clear() {
	for i := 0; i < p.highWater; i++ {
		s := &p.slots[i]
		if !s.occupied {
			continue
		}
		if p.teardown != nil {
			p.teardown(&s.value)
		}
		var zero T
		s.value = zero
		s.occupied = false
	}
	p.resetFreeList()
}

// Close clears the pool and rejects every further mutation with ErrClosed.
func (p *Pool[T]) Close() {
	if p.closed {
		return
	}
	p.Clear()
	p.closed = true
}

func (p *Pool[T]) Len() int       { return p.live }
func (p *Pool[T]) Cap() int       { return len(p.slots) }
func (p *Pool[T]) HighWater() int { return p.highWater }
func (p *Pool[T]) Name() string   { return p.name }

func (p *Pool[T]) Stats() Stats {
	return Stats{Capacity: len(p.slots), Live: p.live, HighWater: p.highWater}
}
