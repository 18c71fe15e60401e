// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T) {
	t.Helper()
	mu.Lock()
	once = sync.Once{}
	instance = nil
	configPath = ""
	mu.Unlock()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_FromFile(t *testing.T) {
	resetConfig(t)

	path := filepath.Join(t.TempDir(), "blockwatch.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
watcher:
  tickInterval: 250ms
  readyTimeout: 2ms
enumeration:
  pattern: "vd*[0-9]"
  prober: udevadm
events:
  bufferSize: 32
`), 0644))

	cfg := LoadConfig(path)
	require.NotNil(t, cfg)

	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 2*time.Millisecond, cfg.ReadyTimeout())
	assert.Equal(t, "vd*[0-9]", cfg.Enumeration.Pattern)
	assert.Equal(t, "udevadm", cfg.Enumeration.Prober)
	assert.Equal(t, 32, cfg.Events.BufferSize)

	// Unset keys keep their defaults.
	assert.Equal(t, "block", cfg.Watcher.Subsystem)
	assert.Equal(t, "/dev", cfg.Enumeration.DeviceRoot)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, path, GetLoadedConfigPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileWritesDefaults(t *testing.T) {
	resetConfig(t)

	path := filepath.Join(t.TempDir(), "nested", "blockwatch.yml")
	cfg := LoadConfig(path)
	require.NotNil(t, cfg)

	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 5*time.Millisecond, cfg.ReadyTimeout())
	assert.Equal(t, "sd*[0-9]", cfg.Enumeration.Pattern)
	assert.Equal(t, "blkid", cfg.Enumeration.Prober)
	assert.True(t, cfg.Watcher.EnumerateOnStart)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tickInterval: 100ms")
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	resetConfig(t)
	t.Setenv("BLOCKWATCH_WATCHER_TICKINTERVAL", "1s")

	path := filepath.Join(t.TempDir(), "blockwatch.yml")
	require.NoError(t, os.WriteFile(path, []byte("watcher:\n  tickInterval: 300ms\n"), 0644))

	cfg := LoadConfig(path)
	assert.Equal(t, time.Second, cfg.TickInterval())
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Watcher.TickInterval = "soon"
	cfg.Enumeration.Prober = "lsblk"
	cfg.Enumeration.DeviceRoot = "dev"
	cfg.Enumeration.Pattern = "sd[0-9"
	cfg.Events.BufferSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ConfigValidationFailed))
	for _, key := range []string{
		"watcher.tickInterval",
		"enumeration.prober",
		"enumeration.deviceRoot",
		"enumeration.pattern",
		"events.bufferSize",
	} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestNewLoggerConfig(t *testing.T) {
	assert.Equal(t, "info", NewLoggerConfig(nil).LogLevel)

	var cfg Config
	cfg.Logger.LogLevel = "debug"
	assert.Equal(t, "debug", NewLoggerConfig(&cfg).LogLevel)
}
