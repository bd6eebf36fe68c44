package linux

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/XC-/aoa"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type cmdParam interface {
	marshal([]byte)
	opcode() opcode
	len() int
}

func newCmd(d io.Writer, log *logrus.Entry) *cmd {
	c := &cmd{
		dev:     d,
		log:     log,
		compc:   make(chan commandCompleteEP),
		statusc: make(chan commandStatusEP),
		quit:    make(chan struct{}),
	}
	go c.processCmdEvents()
	return c
}

type cmdPkt struct {
	op   opcode
	cp   cmdParam
	done chan []byte
}

func (c cmdPkt) marshal() []byte {
	b := make([]byte, 1+2+1+c.cp.len())
	b[0] = byte(typCommandPkt)
	b[1], b[2] = byte(c.op), byte(c.op>>8)
	b[3] = byte(c.cp.len())
	c.cp.marshal(b[4:])
	return b
}

type cmd struct {
	dev     io.Writer
	log     *logrus.Entry
	mu      sync.Mutex
	sent    []*cmdPkt
	compc   chan commandCompleteEP
	statusc chan commandStatusEP
	quit    chan struct{}
	once    sync.Once
}

func (c *cmd) close() { c.once.Do(func() { close(c.quit) }) }

func (c *cmd) handleComplete(b []byte) error {
	var ep commandCompleteEP
	if err := ep.unmarshal(b); err != nil {
		return err
	}
	select {
	case c.compc <- ep:
	case <-c.quit:
	}
	return nil
}

func (c *cmd) handleStatus(b []byte) error {
	var ep commandStatusEP
	if err := ep.unmarshal(b); err != nil {
		return err
	}
	select {
	case c.statusc <- ep:
	case <-c.quit:
	}
	return nil
}

// send writes cp to the controller and waits for its Command Complete
// return parameters, or a one byte status for commands answered with
// Command Status.
func (c *cmd) send(ctx context.Context, cp cmdParam) ([]byte, error) {
	op := cp.opcode()
	p := &cmdPkt{op: op, cp: cp, done: make(chan []byte, 1)}
	raw := p.marshal()

	c.log.Debugf("< HCI Command: %s (0x%02X|0x%04X) plen: %d [ % X ]", op, op.ogf(), op.ocf(), len(raw)-4, raw)
	c.mu.Lock()
	c.sent = append(c.sent, p)
	c.mu.Unlock()
	if n, err := c.dev.Write(raw); err != nil {
		c.remove(p)
		return nil, errors.Wrapf(err, "write %s", op)
	} else if n != len(raw) {
		c.remove(p)
		return nil, errors.New("failed to send whole cmd pkt to HCI socket")
	}
	select {
	case rsp := <-p.done:
		return rsp, nil
	case <-ctx.Done():
		c.remove(p)
		return nil, errors.Wrap(ctx.Err(), op.String())
	case <-c.quit:
		return nil, errors.Wrap(io.ErrClosedPipe, op.String())
	}
}

// sendAndCheckResp sends cp and turns a non-zero status into an
// *aoa.StatusError.
func (c *cmd) sendAndCheckResp(ctx context.Context, cp cmdParam) ([]byte, error) {
	rsp, err := c.send(ctx, cp)
	if err != nil {
		return nil, err
	}
	if len(rsp) == 0 {
		return nil, errors.Errorf("HCI command: '%s' returned no status", cp.opcode())
	}
	if rsp[0] != 0x00 {
		return nil, &aoa.StatusError{Op: cp.opcode().String(), Status: rsp[0]}
	}
	return rsp[1:], nil
}

func (c *cmd) remove(p *cmdPkt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sent {
		if s == p {
			c.sent = append(c.sent[:i], c.sent[i+1:]...)
			return true
		}
	}
	return false
}

// take removes and returns the oldest pending command with opcode op.
func (c *cmd) take(op uint16) *cmdPkt {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.sent {
		if uint16(p.op) == op {
			c.sent = append(c.sent[:i], c.sent[i+1:]...)
			return p
		}
	}
	return nil
}

func (c *cmd) processCmdEvents() {
	for {
		select {
		case status := <-c.statusc:
			// A zero opcode only reports free command slots.
			if status.commandOpcode == 0 {
				continue
			}
			p := c.take(status.commandOpcode)
			if p == nil {
				c.log.Warnf("Can't find the cmdPkt for this CommandStatusEP: %v", status)
				continue
			}
			p.done <- []byte{status.status}
		case comp := <-c.compc:
			if comp.commandOPCode == 0 {
				continue
			}
			p := c.take(comp.commandOPCode)
			if p == nil {
				c.log.Warnf("Can't find the cmdPkt for this CommandCompleteEP: %v", comp)
				continue
			}
			p.done <- comp.returnParameters
		case <-c.quit:
			return
		}
	}
}

const (
	hostCtl = 0x03
	leCtl   = 0x08
)

type opcode uint16

func (op opcode) ogf() uint8  { return uint8((uint16(op) & 0xFC00) >> 10) }
func (op opcode) ocf() uint16 { return uint16(op) & 0x03FF }
func (op opcode) String() string {
	if n, ok := opName[op]; ok {
		return n
	}
	return "Unknown Command"
}

const (
	opSetEventMask = opcode(hostCtl<<10 | 0x0001)
	opReset        = opcode(hostCtl<<10 | 0x0003)
)

const (
	opLESetEventMask                     = opcode(leCtl<<10 | 0x0001)
	opLESetAdvertisingParameters         = opcode(leCtl<<10 | 0x0006)
	opLESetAdvertisingData               = opcode(leCtl<<10 | 0x0008)
	opLESetScanResponseData              = opcode(leCtl<<10 | 0x0009)
	opLESetAdvertiseEnable               = opcode(leCtl<<10 | 0x000a)
	opLESetExtAdvParameters              = opcode(leCtl<<10 | 0x0036)
	opLESetExtAdvData                    = opcode(leCtl<<10 | 0x0037)
	opLESetExtAdvEnable                  = opcode(leCtl<<10 | 0x0039)
	opLERemoveAdvSet                     = opcode(leCtl<<10 | 0x003c)
	opLESetPerAdvParameters              = opcode(leCtl<<10 | 0x003e)
	opLESetPerAdvData                    = opcode(leCtl<<10 | 0x003f)
	opLESetPerAdvEnable                  = opcode(leCtl<<10 | 0x0040)
	opLESetExtScanParameters             = opcode(leCtl<<10 | 0x0041)
	opLESetExtScanEnable                 = opcode(leCtl<<10 | 0x0042)
	opLEPerAdvCreateSync                 = opcode(leCtl<<10 | 0x0044)
	opLEPerAdvTerminateSync              = opcode(leCtl<<10 | 0x0046)
	opLESetConnectionlessCTETxParameters = opcode(leCtl<<10 | 0x0051)
	opLESetConnectionlessCTETxEnable     = opcode(leCtl<<10 | 0x0052)
	opLESetConnectionlessIQSamplingEn    = opcode(leCtl<<10 | 0x0053)
)

var opName = map[opcode]string{
	opSetEventMask: "Set Event Mask",
	opReset:        "Reset",

	opLESetEventMask:                     "LE Set Event Mask",
	opLESetAdvertisingParameters:         "LE Set Advertising Parameters",
	opLESetAdvertisingData:               "LE Set Advertising Data",
	opLESetScanResponseData:              "LE Set Scan Response Data",
	opLESetAdvertiseEnable:               "LE Set Advertising Enable",
	opLESetExtAdvParameters:              "LE Set Extended Advertising Parameters",
	opLESetExtAdvData:                    "LE Set Extended Advertising Data",
	opLESetExtAdvEnable:                  "LE Set Extended Advertising Enable",
	opLERemoveAdvSet:                     "LE Remove Advertising Set",
	opLESetPerAdvParameters:              "LE Set Periodic Advertising Parameters",
	opLESetPerAdvData:                    "LE Set Periodic Advertising Data",
	opLESetPerAdvEnable:                  "LE Set Periodic Advertising Enable",
	opLESetExtScanParameters:             "LE Set Extended Scan Parameters",
	opLESetExtScanEnable:                 "LE Set Extended Scan Enable",
	opLEPerAdvCreateSync:                 "LE Periodic Advertising Create Sync",
	opLEPerAdvTerminateSync:              "LE Periodic Advertising Terminate Sync",
	opLESetConnectionlessCTETxParameters: "LE Set Connectionless CTE Transmit Parameters",
	opLESetConnectionlessCTETxEnable:     "LE Set Connectionless CTE Transmit Enable",
	opLESetConnectionlessIQSamplingEn:    "LE Set Connectionless IQ Sampling Enable",
}

var o = binary.LittleEndian

func put24(b []byte, v uint32) { b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16) }

// Reset (0x0003)
type reset struct{}

func (c reset) opcode() opcode   { return opReset }
func (c reset) len() int         { return 0 }
func (c reset) marshal(b []byte) {}

// Set Event Mask (0x0001)
type setEventMask struct {
	eventMask uint64
}

func (c setEventMask) opcode() opcode { return opSetEventMask }
func (c setEventMask) len() int       { return 8 }
func (c setEventMask) marshal(b []byte) {
	o.PutUint64(b, c.eventMask)
}

// LE Set Event Mask (0x0001)
type leSetEventMask struct {
	leEventMask uint64
}

func (c leSetEventMask) opcode() opcode { return opLESetEventMask }
func (c leSetEventMask) len() int       { return 8 }
func (c leSetEventMask) marshal(b []byte) {
	o.PutUint64(b, c.leEventMask)
}

// LE Set Advertising Parameters (0x0006)
type leSetAdvertisingParameters struct {
	advertisingIntervalMin  uint16
	advertisingIntervalMax  uint16
	advertisingType         uint8
	ownAddressType          uint8
	directAddressType       uint8
	directAddress           [6]byte
	advertisingChannelMap   uint8
	advertisingFilterPolicy uint8
}

func (c leSetAdvertisingParameters) opcode() opcode { return opLESetAdvertisingParameters }
func (c leSetAdvertisingParameters) len() int       { return 15 }
func (c leSetAdvertisingParameters) marshal(b []byte) {
	o.PutUint16(b[0:], c.advertisingIntervalMin)
	o.PutUint16(b[2:], c.advertisingIntervalMax)
	b[4] = c.advertisingType
	b[5] = c.ownAddressType
	b[6] = c.directAddressType
	copy(b[7:13], c.directAddress[:])
	b[13] = c.advertisingChannelMap
	b[14] = c.advertisingFilterPolicy
}

// LE Set Advertising Data (0x0008)
type leSetAdvertisingData struct {
	advertisingDataLength uint8
	advertisingData       [31]byte
}

func (c leSetAdvertisingData) opcode() opcode { return opLESetAdvertisingData }
func (c leSetAdvertisingData) len() int       { return 32 }
func (c leSetAdvertisingData) marshal(b []byte) {
	b[0] = c.advertisingDataLength
	copy(b[1:], c.advertisingData[:])
}

// LE Set Scan Response Data (0x0009)
type leSetScanResponseData struct {
	scanResponseDataLength uint8
	scanResponseData       [31]byte
}

func (c leSetScanResponseData) opcode() opcode { return opLESetScanResponseData }
func (c leSetScanResponseData) len() int       { return 32 }
func (c leSetScanResponseData) marshal(b []byte) {
	b[0] = c.scanResponseDataLength
	copy(b[1:], c.scanResponseData[:])
}

// LE Set Advertising Enable (0x000A)
type leSetAdvertiseEnable struct {
	advertisingEnable uint8
}

func (c leSetAdvertiseEnable) opcode() opcode { return opLESetAdvertiseEnable }
func (c leSetAdvertiseEnable) len() int       { return 1 }
func (c leSetAdvertiseEnable) marshal(b []byte) {
	b[0] = c.advertisingEnable
}

// LE Set Extended Advertising Parameters (0x0036)
type leSetExtAdvParameters struct {
	advertisingHandle         uint8
	advertisingEventProps     uint16
	primaryIntervalMin        uint32 // 24 bits
	primaryIntervalMax        uint32 // 24 bits
	primaryChannelMap         uint8
	ownAddressType            uint8
	peerAddressType           uint8
	peerAddress               [6]byte
	advertisingFilterPolicy   uint8
	advertisingTxPower        int8
	primaryPHY                uint8
	secondaryMaxSkip          uint8
	secondaryPHY              uint8
	advertisingSID            uint8
	scanRequestNotificationEn uint8
}

func (c leSetExtAdvParameters) opcode() opcode { return opLESetExtAdvParameters }
func (c leSetExtAdvParameters) len() int       { return 25 }
func (c leSetExtAdvParameters) marshal(b []byte) {
	b[0] = c.advertisingHandle
	o.PutUint16(b[1:], c.advertisingEventProps)
	put24(b[3:], c.primaryIntervalMin)
	put24(b[6:], c.primaryIntervalMax)
	b[9] = c.primaryChannelMap
	b[10] = c.ownAddressType
	b[11] = c.peerAddressType
	copy(b[12:18], c.peerAddress[:])
	b[18] = c.advertisingFilterPolicy
	b[19] = byte(c.advertisingTxPower)
	b[20] = c.primaryPHY
	b[21] = c.secondaryMaxSkip
	b[22] = c.secondaryPHY
	b[23] = c.advertisingSID
	b[24] = c.scanRequestNotificationEn
}

// LE Set Extended Advertising Data (0x0037)
type leSetExtAdvData struct {
	advertisingHandle  uint8
	operation          uint8
	fragmentPreference uint8
	advertisingData    []byte
}

func (c leSetExtAdvData) opcode() opcode { return opLESetExtAdvData }
func (c leSetExtAdvData) len() int       { return 4 + len(c.advertisingData) }
func (c leSetExtAdvData) marshal(b []byte) {
	b[0] = c.advertisingHandle
	b[1] = c.operation
	b[2] = c.fragmentPreference
	b[3] = uint8(len(c.advertisingData))
	copy(b[4:], c.advertisingData)
}

type extAdvEnableSet struct {
	advertisingHandle uint8
	duration          uint16
	maxExtAdvEvents   uint8
}

// LE Set Extended Advertising Enable (0x0039)
type leSetExtAdvEnable struct {
	enable uint8
	sets   []extAdvEnableSet
}

func (c leSetExtAdvEnable) opcode() opcode { return opLESetExtAdvEnable }
func (c leSetExtAdvEnable) len() int       { return 2 + 4*len(c.sets) }
func (c leSetExtAdvEnable) marshal(b []byte) {
	b[0] = c.enable
	b[1] = uint8(len(c.sets))
	for i, s := range c.sets {
		p := b[2+4*i:]
		p[0] = s.advertisingHandle
		o.PutUint16(p[1:], s.duration)
		p[3] = s.maxExtAdvEvents
	}
}

// LE Remove Advertising Set (0x003C)
type leRemoveAdvSet struct {
	advertisingHandle uint8
}

func (c leRemoveAdvSet) opcode() opcode { return opLERemoveAdvSet }
func (c leRemoveAdvSet) len() int       { return 1 }
func (c leRemoveAdvSet) marshal(b []byte) {
	b[0] = c.advertisingHandle
}

// LE Set Periodic Advertising Parameters (0x003E)
type leSetPerAdvParameters struct {
	advertisingHandle uint8
	intervalMin       uint16
	intervalMax       uint16
	properties        uint16
}

func (c leSetPerAdvParameters) opcode() opcode { return opLESetPerAdvParameters }
func (c leSetPerAdvParameters) len() int       { return 7 }
func (c leSetPerAdvParameters) marshal(b []byte) {
	b[0] = c.advertisingHandle
	o.PutUint16(b[1:], c.intervalMin)
	o.PutUint16(b[3:], c.intervalMax)
	o.PutUint16(b[5:], c.properties)
}

// LE Set Periodic Advertising Data (0x003F)
type leSetPerAdvData struct {
	advertisingHandle uint8
	operation         uint8
	advertisingData   []byte
}

func (c leSetPerAdvData) opcode() opcode { return opLESetPerAdvData }
func (c leSetPerAdvData) len() int       { return 3 + len(c.advertisingData) }
func (c leSetPerAdvData) marshal(b []byte) {
	b[0] = c.advertisingHandle
	b[1] = c.operation
	b[2] = uint8(len(c.advertisingData))
	copy(b[3:], c.advertisingData)
}

// LE Set Periodic Advertising Enable (0x0040)
type leSetPerAdvEnable struct {
	enable            uint8
	advertisingHandle uint8
}

func (c leSetPerAdvEnable) opcode() opcode { return opLESetPerAdvEnable }
func (c leSetPerAdvEnable) len() int       { return 2 }
func (c leSetPerAdvEnable) marshal(b []byte) {
	b[0] = c.enable
	b[1] = c.advertisingHandle
}

// LE Set Extended Scan Parameters (0x0041), LE 1M PHY only.
type leSetExtScanParameters struct {
	ownAddressType       uint8
	scanningFilterPolicy uint8
	scanType             uint8 // 0x00: passive, 0x01: active
	scanInterval         uint16
	scanWindow           uint16
}

func (c leSetExtScanParameters) opcode() opcode { return opLESetExtScanParameters }
func (c leSetExtScanParameters) len() int       { return 8 }
func (c leSetExtScanParameters) marshal(b []byte) {
	b[0] = c.ownAddressType
	b[1] = c.scanningFilterPolicy
	b[2] = phy1M
	b[3] = c.scanType
	o.PutUint16(b[4:], c.scanInterval)
	o.PutUint16(b[6:], c.scanWindow)
}

// LE Set Extended Scan Enable (0x0042)
type leSetExtScanEnable struct {
	enable           uint8
	filterDuplicates uint8
	duration         uint16
	period           uint16
}

func (c leSetExtScanEnable) opcode() opcode { return opLESetExtScanEnable }
func (c leSetExtScanEnable) len() int       { return 6 }
func (c leSetExtScanEnable) marshal(b []byte) {
	b[0] = c.enable
	b[1] = c.filterDuplicates
	o.PutUint16(b[2:], c.duration)
	o.PutUint16(b[4:], c.period)
}

// LE Periodic Advertising Create Sync (0x0044)
type lePerAdvCreateSync struct {
	options            uint8
	advertisingSID     uint8
	advertiserAddrType uint8
	advertiserAddress  [6]byte
	skip               uint16
	syncTimeout        uint16
	syncCTEType        uint8
}

func (c lePerAdvCreateSync) opcode() opcode { return opLEPerAdvCreateSync }
func (c lePerAdvCreateSync) len() int       { return 14 }
func (c lePerAdvCreateSync) marshal(b []byte) {
	b[0] = c.options
	b[1] = c.advertisingSID
	b[2] = c.advertiserAddrType
	copy(b[3:9], c.advertiserAddress[:])
	o.PutUint16(b[9:], c.skip)
	o.PutUint16(b[11:], c.syncTimeout)
	b[13] = c.syncCTEType
}

// LE Periodic Advertising Terminate Sync (0x0046)
type lePerAdvTerminateSync struct {
	syncHandle uint16
}

func (c lePerAdvTerminateSync) opcode() opcode { return opLEPerAdvTerminateSync }
func (c lePerAdvTerminateSync) len() int       { return 2 }
func (c lePerAdvTerminateSync) marshal(b []byte) {
	o.PutUint16(b, c.syncHandle)
}

// LE Set Connectionless CTE Transmit Parameters (0x0051)
type leSetConnectionlessCTETxParameters struct {
	advertisingHandle uint8
	cteLength         uint8
	cteType           uint8
	cteCount          uint8
	antennaIDs        []byte
}

func (c leSetConnectionlessCTETxParameters) opcode() opcode {
	return opLESetConnectionlessCTETxParameters
}
func (c leSetConnectionlessCTETxParameters) len() int { return 5 + len(c.antennaIDs) }
func (c leSetConnectionlessCTETxParameters) marshal(b []byte) {
	b[0] = c.advertisingHandle
	b[1] = c.cteLength
	b[2] = c.cteType
	b[3] = c.cteCount
	b[4] = uint8(len(c.antennaIDs))
	copy(b[5:], c.antennaIDs)
}

// LE Set Connectionless CTE Transmit Enable (0x0052)
type leSetConnectionlessCTETxEnable struct {
	advertisingHandle uint8
	enable            uint8
}

func (c leSetConnectionlessCTETxEnable) opcode() opcode { return opLESetConnectionlessCTETxEnable }
func (c leSetConnectionlessCTETxEnable) len() int       { return 2 }
func (c leSetConnectionlessCTETxEnable) marshal(b []byte) {
	b[0] = c.advertisingHandle
	b[1] = c.enable
}

// LE Set Connectionless IQ Sampling Enable (0x0053)
type leSetConnectionlessIQSamplingEnable struct {
	syncHandle     uint16
	enable         uint8
	slotDurations  uint8
	maxSampledCTEs uint8
	antennaIDs     []byte
}

func (c leSetConnectionlessIQSamplingEnable) opcode() opcode {
	return opLESetConnectionlessIQSamplingEn
}
func (c leSetConnectionlessIQSamplingEnable) len() int { return 6 + len(c.antennaIDs) }
func (c leSetConnectionlessIQSamplingEnable) marshal(b []byte) {
	o.PutUint16(b, c.syncHandle)
	b[2] = c.enable
	b[3] = c.slotDurations
	b[4] = c.maxSampledCTEs
	b[5] = uint8(len(c.antennaIDs))
	copy(b[6:], c.antennaIDs)
}
