package aoa

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrEIRPacketTooLong is the error returned when an element would not fit
// in an advertising packet.
var ErrEIRPacketTooLong = errors.New("advertising packet too long")

// ErrMalformedAD is returned when an element's length runs past the end
// of the advertising data.
var ErrMalformedAD = errors.New("malformed advertising data")

// An ADElement is one length-type-value element of advertising data.
type ADElement struct {
	Type byte
	Data []byte
}

// AdvPacket builds advertising data element by element. The zero value
// is an empty legacy packet.
type AdvPacket struct {
	data []byte
	max  int
}

// NewAdvPacket returns an empty legacy advertising packet.
func NewAdvPacket() *AdvPacket { return &AdvPacket{max: MaxEIRPacketLength} }

// NewExtAdvPacket returns an empty packet sized for extended or periodic
// advertising data.
func NewExtAdvPacket() *AdvPacket { return &AdvPacket{max: MaxExtAdvDataLength} }

func (p *AdvPacket) limit() int {
	if p.max == 0 {
		return MaxEIRPacketLength
	}
	return p.max
}

// Len returns the number of significant bytes in the packet.
func (p *AdvPacket) Len() int { return len(p.data) }

// Bytes returns a copy of the encoded packet.
func (p *AdvPacket) Bytes() []byte {
	b := make([]byte, len(p.data))
	copy(b, p.data)
	return b
}

// AppendField appends a BLE advertising packet field, or returns
// ErrEIRPacketTooLong and leaves the packet untouched.
func (p *AdvPacket) AppendField(typ byte, data []byte) error {
	// A field consists of len, typ, data.
	// Len is 1 byte for typ plus len(data).
	if len(data) > 0xFE || len(p.data)+2+len(data) > p.limit() {
		return ErrEIRPacketTooLong
	}
	p.data = append(p.data, byte(len(data)+1), typ)
	p.data = append(p.data, data...)
	return nil
}

// AppendFlags appends a flags field.
func (p *AdvPacket) AppendFlags(f byte) error {
	return p.AppendField(typeFlags, []byte{f})
}

// AppendName appends the complete local name. If the name doesn't fit,
// as much of it as fits is appended as a shortened local name.
func (p *AdvPacket) AppendName(name string) error {
	typ := byte(typeCompleteName)
	if room := p.limit() - len(p.data) - 2; len(name) > room {
		if room <= 0 {
			return ErrEIRPacketTooLong
		}
		name = name[:room]
		typ = typeShortName
	}
	return p.AppendField(typ, []byte(name))
}

// AppendUUID16List appends a list of 16-bit service UUIDs, marked
// complete or incomplete.
func (p *AdvPacket) AppendUUID16List(complete bool, uu ...uint16) error {
	typ := byte(typeSomeUUID16)
	if complete {
		typ = typeAllUUID16
	}
	b := make([]byte, 2*len(uu))
	for i, u := range uu {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return p.AppendField(typ, b)
}

// AppendManufacturerData appends manufacturer specific data prefixed with
// the company id.
func (p *AdvPacket) AppendManufacturerData(cid uint16, data []byte) error {
	d := append([]byte{uint8(cid), uint8(cid >> 8)}, data...)
	return p.AppendField(typeManufacturerData, d)
}

// ParseAD calls fn for each element of b, in order, until fn returns
// false. A zero length byte ends the significant part of the data.
func ParseAD(b []byte, fn func(e ADElement) bool) error {
	for len(b) > 0 {
		l := int(b[0])
		if l == 0 {
			return nil
		}
		if len(b) < 1+l {
			return ErrMalformedAD
		}
		if !fn(ADElement{Type: b[1], Data: b[2 : 1+l]}) {
			return nil
		}
		b = b[1+l:]
	}
	return nil
}

// CompleteLocalName returns the first complete local name in b. At most
// MaxNameLength bytes are copied, whatever length the element declares.
func CompleteLocalName(b []byte) (string, bool) {
	var buf [MaxNameLength]byte
	n, found := 0, false
	ParseAD(b, func(e ADElement) bool {
		if e.Type != typeCompleteName {
			return true
		}
		n, found = copy(buf[:], e.Data), true
		return false
	})
	return string(buf[:n]), found
}

// Advertisement is the decoded content of a scanned advertising packet.
type Advertisement struct {
	LocalName        string
	Flags            byte
	Services         []uint16
	ServiceUUIDs     [][]byte // 32 and 128-bit UUIDs, little endian
	ManufacturerData []byte
	ServiceData      []byte
	TxPowerLevel     int
	Connectable      bool
}

// Unmarshall decodes b into a. Unknown element types are skipped.
func (a *Advertisement) Unmarshall(b []byte) error {
	var err error
	perr := ParseAD(b, func(e ADElement) bool {
		d := e.Data
		switch e.Type {
		case typeFlags:
			if len(d) != 1 {
				err = ErrMalformedAD
				return false
			}
			a.Flags = d[0]
			a.Connectable = d[0]&(FlagLimitedDiscoverable|FlagGeneralDiscoverable) != 0
		case typeSomeUUID16, typeAllUUID16:
			for ; len(d) >= 2; d = d[2:] {
				a.Services = append(a.Services, binary.LittleEndian.Uint16(d))
			}
		case typeSomeUUID32, typeAllUUID32:
			a.ServiceUUIDs = appendUUIDs(a.ServiceUUIDs, d, 4)
		case typeSomeUUID128, typeAllUUID128:
			a.ServiceUUIDs = appendUUIDs(a.ServiceUUIDs, d, 16)
		case typeShortName:
			if a.LocalName == "" {
				a.LocalName = string(d)
			}
		case typeCompleteName:
			a.LocalName = string(d)
		case typeTxPower:
			if len(d) == 1 {
				a.TxPowerLevel = int(int8(d[0]))
			}
		case typeServiceData16, typeServiceData32, typeServiceData128:
			a.ServiceData = append([]byte(nil), d...)
		case typeManufacturerData:
			a.ManufacturerData = append([]byte(nil), d...)
		}
		return true
	})
	if perr != nil {
		return perr
	}
	return err
}

func appendUUIDs(uu [][]byte, d []byte, w int) [][]byte {
	for ; len(d) >= w; d = d[w:] {
		uu = append(uu, append([]byte(nil), d[:w]...))
	}
	return uu
}
