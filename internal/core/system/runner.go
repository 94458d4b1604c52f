package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	ticks   uint64
	observe func(Phase, time.Duration)
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

// Observe installs a hook called with each system's wall time. Used for
// tick metrics; nil disables it.
func (r *Runner) Observe(fn func(Phase, time.Duration)) {
	r.observe = fn
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		r.run(s, dt)
	}
	r.ticks++
}

// TickPhase runs only the systems of one phase. Does not advance Ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			r.run(s, dt)
		}
	}
}

// Ticks is the number of completed full ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }

func (r *Runner) run(s System, dt time.Duration) {
	if r.observe == nil {
		s.Update(dt)
		return
	}
	start := time.Now()
	s.Update(dt)
	r.observe(s.Phase(), time.Since(start))
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
