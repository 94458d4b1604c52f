package event

import (
	"testing"

	"github.com/altplanet/engine/internal/core/ecs"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e ActorSpawned) { got = append(got, "spawn:"+e.Name) })
	Subscribe(b, func(e ActorDespawned) { got = append(got, "despawn:"+e.Name) })

	Emit(b, ActorSpawned{EntityID: ecs.NewEntityID(0, 1), Name: "box"})
	Emit(b, ActorDespawned{Name: "box"})
	Emit(b, ActorSpawned{Name: "ico"})
	assert.Equal(t, 3, b.Pending())

	b.DispatchAll()
	assert.Empty(t, got, "events are not readable in the tick they were emitted")

	b.SwapBuffers()
	assert.Zero(t, b.Pending())
	b.DispatchAll()
	assert.Equal(t, []string{"spawn:box", "spawn:ico", "despawn:box"}, got)

	got = got[:0]
	b.SwapBuffers()
	b.DispatchAll()
	assert.Empty(t, got, "events are delivered once")
}
