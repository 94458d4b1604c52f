package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func writeScript(t *testing.T, dir, sub, name, src string) {
	t.Helper()
	p := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(p, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p, name), []byte(src), 0o644))
}

func TestSteerCallsLua(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "tuning.lua", `player_thrust = 42`)
	writeScript(t, dir, "ai", "steer.lua", `
function steer_actor(ctx)
  return { thrust = ctx.altitude * 2, lift = ctx.position[2], turn = ctx.grounded and 1 or -1 }
end`)

	e, err := NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	res := e.Steer(SteerContext{Name: "drone", Altitude: 3, Position: [3]float64{0, 7, 0}, Grounded: true})
	assert.Equal(t, SteerResult{Thrust: 6, Lift: 7, Turn: 1}, res)
	assert.Equal(t, 42.0, e.Number("player_thrust", 1))
	assert.Equal(t, 1.5, e.Number("missing", 1.5))
}

func TestSteerFailuresYieldZero(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, SteerResult{}, e.Steer(SteerContext{Name: "a"}), "no steer_actor defined")

	require.NoError(t, e.DoString(`function steer_actor(ctx) error("boom") end`))
	assert.Equal(t, SteerResult{}, e.Steer(SteerContext{Name: "a"}))

	require.NoError(t, e.DoString(`function steer_actor(ctx) return 5 end`))
	assert.Equal(t, SteerResult{}, e.Steer(SteerContext{Name: "a"}))

	// the VM stays usable after a protected error
	require.NoError(t, e.DoString(`function steer_actor(ctx) return { turn = 0.5 } end`))
	assert.Equal(t, SteerResult{Turn: 0.5}, e.Steer(SteerContext{Name: "a"}))
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ai", "bad.lua", `function (`)
	_, err := NewEngine(dir, zap.NewNop())
	require.Error(t, err)
}

func TestShippedScriptsLoad(t *testing.T) {
	e, err := NewEngine("../../scripts", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	res := e.Steer(SteerContext{Name: "wanderer", Tick: 120, Grounded: true})
	assert.Equal(t, 400.0, res.Lift)
	assert.Equal(t, 20.0, res.Thrust)
	assert.Greater(t, e.Number("player_thrust", 0), 0.0)
}
