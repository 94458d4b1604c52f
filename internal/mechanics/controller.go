package mechanics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind says who drives an actor.
type Kind int

const (
	KindScript Kind = iota
	KindPlayer
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindPlayer:
		return "player"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps scene-file control names to kinds.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "script", "":
		return KindScript, nil
	case "player":
		return KindPlayer, nil
	}
	return 0, fmt.Errorf("unknown control %q", name)
}

// Signal is a bit set of held movement inputs.
type Signal uint8

const (
	SignalForward Signal = 1 << iota
	SignalBackward
	SignalLeft
	SignalRight
	SignalUp
	SignalDown
	SignalSpeedUp
)

func (s Signal) Has(o Signal) bool { return s&o != 0 }

// axis returns +1, -1 or 0 for a pair of opposing signals.
func (s Signal) axis(pos, neg Signal) float64 {
	var v float64
	if s.Has(pos) {
		v++
	}
	if s.Has(neg) {
		v--
	}
	return v
}

// Controller drives one actor's body. Player controllers read Signals and
// Turn; script controllers are steered by Lua.
type Controller struct {
	Kind    Kind
	Name    string
	Signals Signal
	Turn    float64 // yaw input, rad/s

	// Thrust is the force magnitude applied on the last update.
	Thrust float64

	// TargetOrientation is where the actor is facing; the camera follows
	// the player's.
	TargetOrientation mgl64.Quat
}
