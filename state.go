package aoa

import (
	"github.com/pkg/errors"
)

// ErrBadTransition is returned when a session is asked to move to a state
// it cannot reach from its current one.
var ErrBadTransition = errors.New("bad state transition")

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateEnabling
	StateReady
	StateAdvertising
	StateScanning
	StateSynced
	StateTerminated
)

func (s State) String() string {
	str := []string{
		"Uninitialized",
		"Enabling",
		"Ready",
		"Advertising",
		"Scanning",
		"Synced",
		"Terminated",
	}
	if s < 0 || int(s) >= len(str) {
		return "Unknown"
	}
	return str[int(s)]
}

var transitions = map[State][]State{
	StateUninitialized: {StateEnabling},
	StateEnabling:      {StateReady},
	StateReady:         {StateAdvertising, StateScanning},
	StateScanning:      {StateSynced},
}

// can reports whether a session in s may move to next. Every state may
// move to Terminated except Terminated itself.
func (s State) can(next State) bool {
	if next == StateTerminated {
		return s != StateTerminated
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func transition(from, to State) error {
	if !from.can(to) {
		return errors.Wrapf(ErrBadTransition, "%s -> %s", from, to)
	}
	return nil
}
