package aoa

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidCTE is returned for CTE parameters the controller would reject.
var ErrInvalidCTE = errors.New("invalid CTE parameters")

// CTEType is the kind of Constant Tone Extension.
type CTEType uint8

const (
	CTETypeAoA      CTEType = 0x00 // AoA Constant Tone Extension
	CTETypeAoD1us   CTEType = 0x01 // AoD Constant Tone Extension with 1 µs slots
	CTETypeAoD2us   CTEType = 0x02 // AoD Constant Tone Extension with 2 µs slots
	CTETypeNone     CTEType = 0xFF // No Constant Tone Extension
	maxCTETypeValid         = CTETypeAoD2us
)

func (t CTEType) String() string {
	switch t {
	case CTETypeAoA:
		return "AoA"
	case CTETypeAoD1us:
		return "AoD-1us"
	case CTETypeAoD2us:
		return "AoD-2us"
	case CTETypeNone:
		return "none"
	}
	return fmt.Sprintf("CTEType(0x%02X)", uint8(t))
}

// CTETypeMask selects CTE types a receiver samples.
type CTETypeMask uint8

const (
	CTEMaskAoA    CTETypeMask = 1 << iota // BIT(0)
	CTEMaskAoD1us                         // BIT(1)
	CTEMaskAoD2us                         // BIT(2)
)

// SlotDuration is the antenna switching and sampling slot duration.
type SlotDuration uint8

const (
	Slot1us SlotDuration = 0x01
	Slot2us SlotDuration = 0x02
)

// CTE length limits, in 8 µs units.
const (
	MinCTELength = 2
	MaxCTELength = 20
	MaxCTECount  = 16
)

// CTETxParams describes the CTE appended to periodic advertising.
type CTETxParams struct {
	Length     uint8 // 8 µs units
	Type       CTEType
	Count      uint8 // CTEs per periodic advertising event
	AntennaIDs []uint8
}

// Validate reports whether the controller would accept p.
func (p CTETxParams) Validate() error {
	switch {
	case p.Length < MinCTELength || p.Length > MaxCTELength:
		return errors.Wrapf(ErrInvalidCTE, "length %d not in [%d, %d]", p.Length, MinCTELength, MaxCTELength)
	case p.Count < 1 || p.Count > MaxCTECount:
		return errors.Wrapf(ErrInvalidCTE, "count %d not in [1, %d]", p.Count, MaxCTECount)
	case p.Type > maxCTETypeValid:
		return errors.Wrapf(ErrInvalidCTE, "type %s", p.Type)
	case p.Type != CTETypeAoA && len(p.AntennaIDs) < 2:
		return errors.Wrapf(ErrInvalidCTE, "%s needs at least 2 antenna ids", p.Type)
	}
	return nil
}

// CTERxParams describes how IQ sampling is done on a periodic sync.
type CTERxParams struct {
	Types        CTETypeMask
	SlotDuration SlotDuration
	MaxCount     uint8 // 0 samples every CTE
	AntennaIDs   []uint8
}

// Validate reports whether the controller would accept p.
func (p CTERxParams) Validate() error {
	switch {
	case p.Types == 0 || p.Types&^(CTEMaskAoA|CTEMaskAoD1us|CTEMaskAoD2us) != 0:
		return errors.Wrapf(ErrInvalidCTE, "type mask 0x%02X", uint8(p.Types))
	case p.SlotDuration != Slot1us && p.SlotDuration != Slot2us:
		return errors.Wrapf(ErrInvalidCTE, "slot duration %d", p.SlotDuration)
	case p.MaxCount > MaxCTECount:
		return errors.Wrapf(ErrInvalidCTE, "max count %d", p.MaxCount)
	case p.Types&CTEMaskAoA != 0 && len(p.AntennaIDs) == 1:
		return errors.Wrap(ErrInvalidCTE, "AoA switching pattern needs at least 2 antenna ids")
	}
	return nil
}

// DefaultCTERx samples AoA CTEs in 1 µs slots on the controller's
// default antenna pattern.
var DefaultCTERx = CTERxParams{
	Types:        CTEMaskAoA,
	SlotDuration: Slot1us,
}
