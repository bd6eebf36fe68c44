package aoa

import (
	"testing"

	"github.com/pkg/errors"
)

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateUninitialized, StateEnabling, true},
		{StateUninitialized, StateReady, false},
		{StateEnabling, StateReady, true},
		{StateEnabling, StateAdvertising, false},
		{StateReady, StateAdvertising, true},
		{StateReady, StateScanning, true},
		{StateReady, StateSynced, false},
		{StateScanning, StateSynced, true},
		{StateAdvertising, StateScanning, false},
		{StateSynced, StateScanning, false},
		{StateUninitialized, StateTerminated, true},
		{StateAdvertising, StateTerminated, true},
		{StateSynced, StateTerminated, true},
		{StateTerminated, StateTerminated, false},
		{StateTerminated, StateEnabling, false},
	}
	for _, tt := range cases {
		err := transition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error: %v", tt.from, tt.to, err)
		}
		if !tt.ok && errors.Cause(err) != ErrBadTransition {
			t.Errorf("%s -> %s: got %v want ErrBadTransition", tt.from, tt.to, err)
		}
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateUninitialized: "Uninitialized",
		StateSynced:        "Synced",
		StateTerminated:    "Terminated",
		State(42):          "Unknown",
		State(-1):          "Unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q want %q", int(s), got, want)
		}
	}
}
