package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XC-/aoa"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aoa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "hci", cfg.Stack)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
	assert.Equal(t, "AoA_Beacon", cfg.Beacon.Name)
	assert.Equal(t, aoa.DefaultTarget, cfg.Transmitter.Name)
	assert.Equal(t, aoa.DefaultTarget, cfg.Receiver.Target)
	assert.Equal(t, aoa.DefaultSyncTimeout, cfg.Receiver.SyncTimeout)
	assert.Equal(t, aoa.DefaultSimInterval, cfg.Simulator.Interval)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
stack: sim
device: 1
command_timeout: 500ms
log:
  level: debug
  format: json
transmitter:
  mode: periodic
  cte:
    length: 20
receiver:
  target: My_TX
  skip: 2
simulator:
  interval: 5s
  seed: 42
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Stack)
	assert.Equal(t, 1, cfg.Device)
	assert.Equal(t, 500*time.Millisecond, cfg.CommandTimeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, "periodic", cfg.Transmitter.Mode)
	assert.Equal(t, CTEConfig{Length: 20, Count: 1}, cfg.Transmitter.CTE)
	assert.Equal(t, "My_TX", cfg.Receiver.Target)
	assert.Equal(t, uint16(2), cfg.Receiver.Skip)
	assert.Equal(t, aoa.DefaultSyncTimeout, cfg.Receiver.SyncTimeout)
	assert.Equal(t, 5*time.Second, cfg.Simulator.Interval)
	assert.Equal(t, int64(42), cfg.Simulator.Seed)
	assert.Equal(t, DefaultBeaconName, cfg.Beacon.Name)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "stack: [sim\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AOA_STACK", "sim")
	t.Setenv("AOA_DEVICE", "-1")
	t.Setenv("AOA_LOG_LEVEL", "warn")
	t.Setenv("AOA_SIM_PASSPHRASE", "secret")

	cfg, err := Load(writeConfig(t, "stack: hci\nlog:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Stack)
	assert.Equal(t, -1, cfg.Device)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "secret", cfg.Simulator.Passphrase)
}

func TestEnvOverrideBadDevice(t *testing.T) {
	t.Setenv("AOA_DEVICE", "hci0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{"bad stack", func(c *Config) { c.Stack = "bluez" }, 1},
		{"bad device", func(c *Config) { c.Device = -2 }, 1},
		{"zero timeout", func(c *Config) { c.CommandTimeout = 0 }, 1},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, 1},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, 1},
		{"empty name", func(c *Config) { c.Beacon.Name = "" }, 1},
		{"long name", func(c *Config) { c.Transmitter.Name = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" }, 1},
		{"bad mode", func(c *Config) { c.Transmitter.Mode = "burst" }, 1},
		{"short cte", func(c *Config) { c.Transmitter.CTE.Length = 1 }, 1},
		{"zero cte count", func(c *Config) { c.Transmitter.CTE.Count = 0 }, 1},
		{"sync timeout low", func(c *Config) { c.Receiver.SyncTimeout = 9 }, 1},
		{"sync timeout high", func(c *Config) { c.Receiver.SyncTimeout = 0x4001 }, 1},
		{"skip", func(c *Config) { c.Receiver.Skip = 500 }, 1},
		{"interval", func(c *Config) { c.Simulator.Interval = 0 }, 1},
		{"several", func(c *Config) {
			c.Stack = ""
			c.Receiver.Target = ""
			c.Simulator.Interval = -time.Second
		}, 3},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, tt.errs)
		})
	}
}
