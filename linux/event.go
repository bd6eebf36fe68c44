package linux

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/XC-/aoa"
	"github.com/pkg/errors"
)

var errMalformed = errors.New("malformed event")

type eventHandler interface {
	handleEvent([]byte) error
}

type handlerFunc func(b []byte) error

func (f handlerFunc) handleEvent(b []byte) error {
	return f(b)
}

type event struct {
	evtHandlers map[eventCode]eventHandler
	trace       func(format string, v ...interface{})
}

func newEvent() *event {
	return &event{
		evtHandlers: map[eventCode]eventHandler{},
		trace:       func(string, ...interface{}) {},
	}
}

func (e *event) handleEvent(c eventCode, h eventHandler) {
	e.evtHandlers[c] = h
}

func (e *event) dispatch(b []byte) error {
	h := &eventHeader{}
	if err := h.unmarshal(b); err != nil {
		return err
	}
	b = b[2:] // Skip Event Header (uint8 + uint8)
	if f, found := e.evtHandlers[h.code]; found {
		e.trace("> HCI Event: %s (0x%02X) plen %d: [ % X ]", h.code, uint8(h.code), h.plen, b)
		return f.handleEvent(b)
	}
	e.trace("> HCI Event: no handler for %s (0x%02X)", h.code, uint8(h.code))
	return nil
}

type eventCode uint8

const (
	disconnectionComplete eventCode = 0x05
	commandComplete       eventCode = 0x0E
	commandStatus         eventCode = 0x0F
	hardwareError         eventCode = 0x10
	numberOfCompletedPkts eventCode = 0x13
	leMeta                eventCode = 0x3E
)

var eventName = map[eventCode]string{
	disconnectionComplete: "Disconnection Complete",
	commandComplete:       "Command Complete",
	commandStatus:         "Command Status",
	hardwareError:         "Hardware Error",
	numberOfCompletedPkts: "Number Of Completed Packets",
	leMeta:                "LE Meta",
}

func (e eventCode) String() string {
	if n, ok := eventName[e]; ok {
		return n
	}
	return "Unknown Event"
}

// LE Meta subevents
const (
	leConnectionComplete        = 0x01
	leAdvertisingReport         = 0x02
	leExtendedAdvertisingReport = 0x0D
	lePerAdvSyncEstablished     = 0x0E
	lePerAdvReport              = 0x0F
	lePerAdvSyncLost            = 0x10
	leConnectionlessIQReport    = 0x15
)

type eventHeader struct {
	code eventCode
	plen uint8
}

func (h *eventHeader) unmarshal(b []byte) error {
	if len(b) < 2 {
		return errors.New("malformed header")
	}
	h.code = eventCode(b[0])
	h.plen = b[1]
	if len(b) != 2+int(h.plen) {
		return errors.New("wrong length")
	}
	return nil
}

func (h *eventHeader) String() string {
	return fmt.Sprintf("> HCI Event: %s (0x%02X) plen: %02X", h.code, uint8(h.code), h.plen)
}

// Event Parameters

type commandCompleteEP struct {
	numHCICommandPackets uint8
	commandOPCode        uint16
	returnParameters     []byte
}

func (ep *commandCompleteEP) unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)
	if err := binary.Read(buf, binary.LittleEndian, &ep.numHCICommandPackets); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &ep.commandOPCode); err != nil {
		return err
	}
	ep.returnParameters = buf.Bytes()
	return nil
}

type commandStatusEP struct {
	status               uint8
	numHCICommandPackets uint8
	commandOpcode        uint16
}

func (ep *commandStatusEP) unmarshal(b []byte) error {
	if len(b) < 4 {
		return errMalformed
	}
	ep.status = b[0]
	ep.numHCICommandPackets = b[1]
	ep.commandOpcode = binary.LittleEndian.Uint16(b[2:])
	return nil
}

// unmarshalLEMeta decodes one LE Meta event into the application events
// it carries. Subevents the applications don't consume yield nothing.
func unmarshalLEMeta(b []byte) ([]aoa.Event, error) {
	if len(b) < 1 {
		return nil, errMalformed
	}
	code, b := b[0], b[1:]
	switch code {
	case leAdvertisingReport:
		return unmarshalAdvReports(b)
	case leExtendedAdvertisingReport:
		return unmarshalExtAdvReports(b)
	case lePerAdvSyncEstablished:
		ev, err := unmarshalSyncEstablished(b)
		if err != nil {
			return nil, err
		}
		return []aoa.Event{ev}, nil
	case lePerAdvReport:
		ev, err := unmarshalPerAdvReport(b)
		if err != nil {
			return nil, err
		}
		return []aoa.Event{ev}, nil
	case lePerAdvSyncLost:
		if len(b) < 2 {
			return nil, errMalformed
		}
		return []aoa.Event{aoa.SyncTerminated{
			Sync:   aoa.Sync{Handle: binary.LittleEndian.Uint16(b)},
			Reason: statusSyncLost,
		}}, nil
	}
	return nil, nil
}

// statusSyncLost is the reason reported when the controller loses a sync
// (Connection Failed to be Established / Synchronization Timeout).
const statusSyncLost = 0x3E

// LE Advertising Report. The parameters are laid out as arrays of each
// field, one entry per report.
func unmarshalAdvReports(b []byte) ([]aoa.Event, error) {
	if len(b) < 1 {
		return nil, errMalformed
	}
	n := int(b[0])
	b = b[1:]
	if len(b) < n*(1+1+6+1) {
		return nil, errMalformed
	}
	evs := make([]aoa.AdvReport, n)
	for i := 0; i < n; i++ {
		evs[i].Type = b[i]
	}
	b = b[n:]
	for i := 0; i < n; i++ {
		evs[i].AddrType = b[i]
	}
	b = b[n:]
	for i := 0; i < n; i++ {
		copy(evs[i].Addr[:], b[6*i:6*i+6])
	}
	b = b[6*n:]
	lens := b[:n]
	b = b[n:]
	for i := 0; i < n; i++ {
		l := int(lens[i])
		if len(b) < l {
			return nil, errMalformed
		}
		evs[i].Data = append([]byte(nil), b[:l]...)
		b = b[l:]
	}
	if len(b) < n {
		return nil, errMalformed
	}
	out := make([]aoa.Event, n)
	for i := 0; i < n; i++ {
		evs[i].RSSI = int8(b[i])
		out[i] = evs[i]
	}
	return out, nil
}

const extAdvReportHdrLen = 24

// LE Extended Advertising Report. Each report is a fixed header followed
// by its data.
func unmarshalExtAdvReports(b []byte) ([]aoa.Event, error) {
	if len(b) < 1 {
		return nil, errMalformed
	}
	n := int(b[0])
	b = b[1:]
	out := make([]aoa.Event, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < extAdvReportHdrLen {
			return nil, errMalformed
		}
		et := binary.LittleEndian.Uint16(b[0:])
		r := aoa.AdvReport{
			AddrType: b[2],
			SID:      b[11],
			RSSI:     int8(b[13]),
			Interval: binary.LittleEndian.Uint16(b[14:]),
		}
		copy(r.Addr[:], b[3:9])
		r.Type = extEventType(et)
		l := int(b[23])
		b = b[extAdvReportHdrLen:]
		if len(b) < l {
			return nil, errMalformed
		}
		r.Data = append([]byte(nil), b[:l]...)
		b = b[l:]
		out = append(out, r)
	}
	return out, nil
}

// extEventType maps extended report event type bits onto the legacy
// report types, or AdvExt for a non-legacy PDU.
func extEventType(et uint16) uint8 {
	if et&extLegacy == 0 {
		return aoa.AdvExt
	}
	switch {
	case et&extScanRsp != 0:
		return aoa.ScanRsp
	case et&extConnectable != 0:
		return aoa.AdvInd
	case et&extScannable != 0:
		return aoa.AdvScanInd
	}
	return aoa.AdvNonconnInd
}

// LE Periodic Advertising Sync Established
func unmarshalSyncEstablished(b []byte) (aoa.SyncEstablished, error) {
	if len(b) < 15 {
		return aoa.SyncEstablished{}, errMalformed
	}
	ev := aoa.SyncEstablished{
		Status: b[0],
		Sync: aoa.Sync{
			Handle:   binary.LittleEndian.Uint16(b[1:]),
			SID:      b[3],
			AddrType: b[4],
		},
	}
	copy(ev.Sync.Addr[:], b[5:11])
	return ev, nil
}

// LE Periodic Advertising Report
func unmarshalPerAdvReport(b []byte) (aoa.PerAdvReport, error) {
	if len(b) < 7 {
		return aoa.PerAdvReport{}, errMalformed
	}
	l := int(b[6])
	if len(b) < 7+l {
		return aoa.PerAdvReport{}, errMalformed
	}
	return aoa.PerAdvReport{
		Sync:    aoa.Sync{Handle: binary.LittleEndian.Uint16(b)},
		TxPower: int8(b[2]),
		RSSI:    int8(b[3]),
		CTEType: aoa.CTEType(b[4]),
		Data:    append([]byte(nil), b[7:7+l]...),
	}, nil
}
