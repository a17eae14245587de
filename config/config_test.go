package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg := Load("")

	assert.Equal(t, "devices.c1moore.codes", cfg.Server)
	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, 1, cfg.TickMS)
	assert.True(t, cfg.EnableClock)

	cfg = Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, "devices.c1moore.codes", cfg.Server)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartlights.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server: master.local\nport: 8080\ntick_ms: 5\nenable_clock: false\nwifi_ssid: attic\n",
	), 0o644))

	cfg := Load(path)

	assert.Equal(t, "master.local", cfg.Server)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5, cfg.TickMS)
	assert.False(t, cfg.EnableClock)
	assert.Equal(t, "attic", cfg.WifiSSID)
}

func TestLoadClampsNonsense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartlights.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server: \"\"\nport: -1\ntick_ms: 0\n",
	), 0o644))

	cfg := Load(path)

	assert.Equal(t, "devices.c1moore.codes", cfg.Server)
	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, 1, cfg.TickMS)
}
