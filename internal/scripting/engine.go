package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for actor steering and tuning values.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Load core scripts first, then steering behaviours
	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// SteerContext is the per-tick view of a script-controlled actor.
type SteerContext struct {
	Name     string
	Tick     uint64
	Time     float64 // seconds since scene start
	Position [3]float64
	Velocity [3]float64
	Forward  [3]float64
	Up       [3]float64
	Altitude float64 // height above the planet surface
	Grounded bool
}

// SteerResult is returned by the Lua steering function. Thrust is along the
// actor's forward axis, Lift along local up, Turn is yaw rate in rad/s.
type SteerResult struct {
	Thrust float64
	Lift   float64
	Turn   float64
}

// Steer calls the Lua steer_actor function. A missing function or a Lua
// error yields zero steering.
func (e *Engine) Steer(ctx SteerContext) SteerResult {
	fn := e.vm.GetGlobal("steer_actor")
	if fn == lua.LNil {
		return SteerResult{}
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("time", lua.LNumber(ctx.Time))
	t.RawSetString("position", e.vec(ctx.Position))
	t.RawSetString("velocity", e.vec(ctx.Velocity))
	t.RawSetString("forward", e.vec(ctx.Forward))
	t.RawSetString("up", e.vec(ctx.Up))
	t.RawSetString("altitude", lua.LNumber(ctx.Altitude))
	t.RawSetString("grounded", lua.LBool(ctx.Grounded))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua steer_actor error", zap.Error(err), zap.String("actor", ctx.Name))
		return SteerResult{}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua steer_actor returned non-table", zap.String("actor", ctx.Name))
		return SteerResult{}
	}
	return SteerResult{
		Thrust: lNum(rt, "thrust"),
		Lift:   lNum(rt, "lift"),
		Turn:   lNum(rt, "turn"),
	}
}

// Number reads a numeric global such as a tuning constant, or fallback when
// it is unset or not a number.
func (e *Engine) Number(name string, fallback float64) float64 {
	v, ok := e.vm.GetGlobal(name).(lua.LNumber)
	if !ok {
		return fallback
	}
	return float64(v)
}

func (e *Engine) vec(v [3]float64) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetInt(1, lua.LNumber(v[0]))
	t.RawSetInt(2, lua.LNumber(v[1]))
	t.RawSetInt(3, lua.LNumber(v[2]))
	return t
}

// lNum reads a numeric field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
