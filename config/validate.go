package config

import (
	"fmt"
	"strings"

	"github.com/XC-/aoa"
	"github.com/sirupsen/logrus"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every
// problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateStack(cfg, ve)
	validateLog(cfg, ve)
	validateNames(cfg, ve)
	validateTransmitter(cfg, ve)
	validateReceiver(cfg, ve)
	validateSimulator(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateStack(cfg *Config, ve *ValidationError) {
	switch cfg.Stack {
	case "hci", "sim":
	default:
		ve.Add("stack must be \"hci\" or \"sim\", got %q", cfg.Stack)
	}
	if cfg.Device < -1 {
		ve.Add("device must be >= -1")
	}
	if cfg.CommandTimeout <= 0 {
		ve.Add("command_timeout must be > 0")
	}
}

func validateLog(cfg *Config, ve *ValidationError) {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		ve.Add("log.level: %v", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		ve.Add("log.format must be \"text\" or \"json\", got %q", cfg.Log.Format)
	}
}

func validateNames(cfg *Config, ve *ValidationError) {
	for _, n := range []struct{ key, name string }{
		{"beacon.name", cfg.Beacon.Name},
		{"transmitter.name", cfg.Transmitter.Name},
		{"receiver.target", cfg.Receiver.Target},
	} {
		if n.name == "" {
			ve.Add("%s must not be empty", n.key)
		}
		if len(n.name) > aoa.MaxNameLength {
			ve.Add("%s must be at most %d bytes", n.key, aoa.MaxNameLength)
		}
	}
}

func validateTransmitter(cfg *Config, ve *ValidationError) {
	if _, err := aoa.ParseTxMode(cfg.Transmitter.Mode); err != nil {
		ve.Add("transmitter.mode: %v", err)
	}
	if l := cfg.Transmitter.CTE.Length; l != 0 && (l < aoa.MinCTELength || l > aoa.MaxCTELength) {
		ve.Add("transmitter.cte.length must be in [%d, %d]", aoa.MinCTELength, aoa.MaxCTELength)
	}
	if c := cfg.Transmitter.CTE.Count; c < 1 || c > aoa.MaxCTECount {
		ve.Add("transmitter.cte.count must be in [1, %d]", aoa.MaxCTECount)
	}
}

func validateReceiver(cfg *Config, ve *ValidationError) {
	// Sync timeout range is 100 ms to 163.84 s.
	if t := cfg.Receiver.SyncTimeout; t < 0x000A || t > 0x4000 {
		ve.Add("receiver.sync_timeout must be in [10, 16384]")
	}
	if cfg.Receiver.Skip > 0x01F3 {
		ve.Add("receiver.skip must be <= 499")
	}
}

func validateSimulator(cfg *Config, ve *ValidationError) {
	if cfg.Simulator.Interval <= 0 {
		ve.Add("simulator.interval must be > 0")
	}
}
