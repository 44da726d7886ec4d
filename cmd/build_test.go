//go:build unit

package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"golang-oscnode/internal/adapter/infrastructure/gpio"
	"golang-oscnode/internal/adapter/infrastructure/kv"
	"golang-oscnode/internal/adapter/infrastructure/strip"
	"golang-oscnode/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		store, err := openStore(config.StorageConfig{Driver: "memory", Namespace: "CONFIG"})
		require.NoError(t, err)
		assert.IsType(t, &kv.MemoryStore{}, store)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.yml")
		store, err := openStore(config.StorageConfig{Driver: "file", Path: path, Namespace: "CONFIG"})
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.PutUint("device_id", 4))
		v, ok, err := store.GetUint("device_id")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint32(4), v)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := openStore(config.StorageConfig{Driver: "eeprom"})
		assert.Error(t, err)
	})
}

func TestOpenActuatorAndSwitch(t *testing.T) {
	cfg := config.Default()

	act, err := openActuator(cfg, "BCG_SLAVE_1")
	require.NoError(t, err)
	assert.IsType(t, &strip.LogActuator{}, act)

	cfg.Actuator.Driver = "dmx"
	_, err = openActuator(cfg, "BCG_SLAVE_1")
	assert.Error(t, err)

	sw, err := openSwitch(config.SwitchConfig{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, gpio.NoSwitch{}, sw)
}

func TestBuilder_AssemblesUnmanagedNode(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{Driver: "memory", Namespace: "CONFIG"}
	cfg.Control = config.ControlConfig{Driver: "stdio"}
	cfg.Switch.Enabled = false
	cfg.Link.Manage = false
	cfg.Device.StartupFlash = 0
	cfg.Defaults.InPort = 17001
	require.NoError(t, cfg.Validate())

	defaults, err := cfg.NetworkDefaults()
	require.NoError(t, err)

	runner, cleanup, err := newBuilder(cfg, defaults)(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "BCG_SLAVE_10", runner.GetName())
}
