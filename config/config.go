// Package config loads the settings shared by the example applications.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/XC-/aoa"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Stack          string        `yaml:"stack"` // "hci" or "sim"
	Device         int           `yaml:"device"`
	BlueZPowerOff  bool          `yaml:"bluez_power_off"`
	CommandTimeout time.Duration `yaml:"command_timeout"`

	Log         LogConfig         `yaml:"log"`
	Beacon      BeaconConfig      `yaml:"beacon"`
	Transmitter TransmitterConfig `yaml:"transmitter"`
	Receiver    ReceiverConfig    `yaml:"receiver"`
	Simulator   SimulatorConfig   `yaml:"simulator"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// BeaconConfig holds beacon settings.
type BeaconConfig struct {
	Name string `yaml:"name"`
}

// CTEConfig holds the transmitted CTE shape. A zero Length uses the
// mode's default.
type CTEConfig struct {
	Length uint8 `yaml:"length"`
	Count  uint8 `yaml:"count"`
}

// TransmitterConfig holds CTE transmitter settings.
type TransmitterConfig struct {
	Mode string    `yaml:"mode"` // "basic" or "periodic"
	Name string    `yaml:"name"`
	CTE  CTEConfig `yaml:"cte"`
}

// ReceiverConfig holds CTE receiver settings.
type ReceiverConfig struct {
	Target      string `yaml:"target"`
	SyncTimeout uint16 `yaml:"sync_timeout"` // 10 ms units
	Skip        uint16 `yaml:"skip"`
}

// SimulatorConfig holds angle simulator settings.
type SimulatorConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Passphrase string        `yaml:"passphrase"`
	Seed       int64         `yaml:"seed"` // 0 seeds from uptime
}

// Default names of the advertising applications.
const (
	DefaultBeaconName = "AoA_Beacon"
	DefaultTxName     = aoa.DefaultTarget
)

// Defaults returns a Config with every field set; the applications run
// without a config file.
func Defaults() *Config {
	return &Config{
		Stack:          "hci",
		CommandTimeout: 2 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Beacon: BeaconConfig{Name: DefaultBeaconName},
		Transmitter: TransmitterConfig{
			Mode: "basic",
			Name: DefaultTxName,
			CTE:  CTEConfig{Count: 1},
		},
		Receiver: ReceiverConfig{
			Target:      aoa.DefaultTarget,
			SyncTimeout: aoa.DefaultSyncTimeout,
		},
		Simulator: SimulatorConfig{Interval: aoa.DefaultSimInterval},
	}
}

// Load reads a YAML config file over Defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "read config")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, "parse config")
			}
		}
	}
	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps AOA_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AOA_STACK"); v != "" {
		cfg.Stack = v
	}
	if v := os.Getenv("AOA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "AOA_DEVICE")
		}
		cfg.Device = n
	}
	if v := os.Getenv("AOA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AOA_SIM_PASSPHRASE"); v != "" {
		cfg.Simulator.Passphrase = v
	}
	return nil
}
