package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "altplanet.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
max_actors = 8
max_scene_nodes = 16
tick_rate = "20ms"

[logging]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Simulation.MaxActors)
	assert.Equal(t, 20*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "untouched keys keep defaults")
	assert.Equal(t, "scripts", cfg.Scripting.Dir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
[simulation]
max_actors = 0
tick_rate = "0s"

[database]
enabled = true
dsn = ""
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_actors")
	assert.Contains(t, err.Error(), "tick_rate")
	assert.Contains(t, err.Error(), "database.dsn")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestShippedConfigIsValid(t *testing.T) {
	cfg, err := Load("../../config/altplanet.toml")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Simulation, cfg.Simulation)
}

func TestDefaultsValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
}

func TestControlValidation(t *testing.T) {
	path := writeConfig(t, `
[control]
enabled = true
bind_address = ""
in_queue_size = 0
max_packets_per_tick = 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control.bind_address")
	assert.Contains(t, err.Error(), "queue sizes")
	assert.Contains(t, err.Error(), "max_packets_per_tick")

	cfg, err := Load(writeConfig(t, "[control]\nenabled = true\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7400", cfg.Control.BindAddress)
	assert.Equal(t, 200, cfg.Control.PacketsPerSecond)
}
