package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: player input signals
	PhasePreUpdate               // 1: last tick's events, lifetimes
	PhaseMechanics               // 2: controllers → forces
	PhasePhysics                 // 3: integrate bodies
	PhaseSync                    // 4: bodies → transforms → scene nodes
	PhaseRender                  // 5: world matrices, camera
	PhasePersist                 // 6: periodic snapshots
	PhaseCleanup                 // 7: destroy queued actors
)

var phaseNames = [...]string{"input", "pre_update", "mechanics", "physics", "sync", "render", "persist", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
