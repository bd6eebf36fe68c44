package aoa

import (
	"testing"

	"github.com/pkg/errors"
)

func TestCTETxParamsValidate(t *testing.T) {
	cases := []struct {
		p  CTETxParams
		ok bool
	}{
		{CTETxParams{Length: 16, Type: CTETypeAoA, Count: 1}, true},
		{CTETxParams{Length: MinCTELength, Type: CTETypeAoA, Count: MaxCTECount}, true},
		{CTETxParams{Length: MaxCTELength, Type: CTETypeAoA, Count: 1}, true},
		{CTETxParams{Length: 1, Type: CTETypeAoA, Count: 1}, false},
		{CTETxParams{Length: 21, Type: CTETypeAoA, Count: 1}, false},
		{CTETxParams{Length: 16, Type: CTETypeAoA, Count: 0}, false},
		{CTETxParams{Length: 16, Type: CTETypeAoA, Count: 17}, false},
		{CTETxParams{Length: 16, Type: CTETypeNone, Count: 1}, false},
		{CTETxParams{Length: 16, Type: CTETypeAoD1us, Count: 1}, false},
		{CTETxParams{Length: 16, Type: CTETypeAoD2us, Count: 1, AntennaIDs: []uint8{0, 1}}, true},
	}
	for _, tt := range cases {
		err := tt.p.Validate()
		if tt.ok && err != nil {
			t.Errorf("%+v: unexpected error: %v", tt.p, err)
		}
		if !tt.ok && errors.Cause(err) != ErrInvalidCTE {
			t.Errorf("%+v: got %v want ErrInvalidCTE", tt.p, err)
		}
	}
}

func TestCTERxParamsValidate(t *testing.T) {
	cases := []struct {
		p  CTERxParams
		ok bool
	}{
		{DefaultCTERx, true},
		{CTERxParams{Types: CTEMaskAoA | CTEMaskAoD2us, SlotDuration: Slot2us, MaxCount: 16}, true},
		{CTERxParams{Types: CTEMaskAoA, SlotDuration: Slot1us, AntennaIDs: []uint8{0, 1, 2}}, true},
		{CTERxParams{Types: 0, SlotDuration: Slot1us}, false},
		{CTERxParams{Types: 0x08, SlotDuration: Slot1us}, false},
		{CTERxParams{Types: CTEMaskAoA, SlotDuration: 0}, false},
		{CTERxParams{Types: CTEMaskAoA, SlotDuration: 3}, false},
		{CTERxParams{Types: CTEMaskAoA, SlotDuration: Slot1us, MaxCount: 17}, false},
		{CTERxParams{Types: CTEMaskAoA, SlotDuration: Slot1us, AntennaIDs: []uint8{0}}, false},
	}
	for _, tt := range cases {
		err := tt.p.Validate()
		if tt.ok && err != nil {
			t.Errorf("%+v: unexpected error: %v", tt.p, err)
		}
		if !tt.ok && errors.Cause(err) != ErrInvalidCTE {
			t.Errorf("%+v: got %v want ErrInvalidCTE", tt.p, err)
		}
	}
}

func TestCTETypeString(t *testing.T) {
	for ct, want := range map[CTEType]string{
		CTETypeAoA:    "AoA",
		CTETypeAoD1us: "AoD-1us",
		CTETypeNone:   "none",
		CTEType(0x10): "CTEType(0x10)",
	} {
		if got := ct.String(); got != want {
			t.Errorf("got %q want %q", got, want)
		}
	}
}
