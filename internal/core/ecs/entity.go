package ecs

import (
	"errors"
	"fmt"
)

var (
	ErrEntityCapacity = errors.New("ecs: entity capacity reached")
	ErrStaleEntity    = errors.New("ecs: stale or unknown entity")
)

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1 so the zero EntityID is never issued.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

func (id EntityID) String() string {
	return fmt.Sprintf("entity(%d#%d)", id.Index(), id.Generation())
}

// EntityPool hands out generational ids, at most capacity of them alive at
// once. Freed indices are reused last-in first-out.
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
	alive       int
	capacity    int
}

func NewEntityPool(capacity int) *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, capacity),
		freeList:    make([]uint32, 0, capacity),
		capacity:    capacity,
	}
}

func (p *EntityPool) Create() (EntityID, error) {
	if p.alive >= p.capacity {
		return 0, fmt.Errorf("%w (%d)", ErrEntityCapacity, p.capacity)
	}
	p.alive++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx]), nil
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	return NewEntityID(idx, p.generations[idx]), nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *EntityPool) Destroy(id EntityID) error {
	if !p.Alive(id) {
		return fmt.Errorf("%w: %s", ErrStaleEntity, id)
	}
	idx := id.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.alive--
	return nil
}

func (p *EntityPool) Len() int { return p.alive }
func (p *EntityPool) Cap() int { return p.capacity }
