package slotpool

import "fmt"

// Handle identifies one slot of one pool. It stays valid from Create until
// the matching Destroy; the zero Handle is never valid. Handles carry no
// generation, so a stale handle whose slot has been reused resolves to the
// new occupant.
type Handle struct {
	pool  uint32
	index uint32
}

// Index is the raw slot index, the key shared by index-aligned pools.
func (h Handle) Index() int { return int(h.index) }

func (h Handle) IsZero() bool { return h.pool == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "slot(nil)"
	}
	return fmt.Sprintf("slot(%d:%d)", h.pool, h.index)
}
