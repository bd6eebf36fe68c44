// Package linux drives a Bluetooth 5.1 controller over a Linux HCI socket.
// HCI implements aoa.Stack: each method formats one or more HCI commands
// and waits for their completion, and LE Meta events are delivered as
// aoa events from a single read loop.
package linux

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/XC-/aoa"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotSupported is returned on platforms without HCI sockets.
var ErrNotSupported = errors.New("hci sockets not supported on this platform")

// DefaultCommandTimeout bounds the wait for one command's completion.
const DefaultCommandTimeout = 2 * time.Second

const (
	eventBufferSize = 256
	maxAdvHandle    = 0xEF
	allChannels     = 0x07
)

// Controller status codes used locally.
const (
	statusUnknownAdvSet = 0x42
	statusUnknownSync   = 0x02
)

var _ aoa.Stack = (*HCI)(nil)

// HCI is an aoa.Stack backed by one HCI device.
type HCI struct {
	devID      int
	powerOff   bool
	cmdTimeout time.Duration
	log        *logrus.Entry
	open       func(n int) (io.ReadWriteCloser, error)

	d io.ReadWriteCloser
	c *cmd
	e *event

	mu     sync.Mutex
	events chan aoa.Event
	closed bool
	sets   map[uint8]bool
	syncs  map[uint16]aoa.Sync
}

// New returns an HCI for the configured device. The device is not opened
// until Enable.
func New(opts ...Option) *HCI {
	h := &HCI{
		cmdTimeout: DefaultCommandTimeout,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		open:       newSocket,
		events:     make(chan aoa.Event, eventBufferSize),
		sets:       map[uint8]bool{},
		syncs:      map[uint16]aoa.Sync{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("stack", "hci")
	return h
}

// Events implements aoa.Stack.
func (h *HCI) Events() <-chan aoa.Event { return h.events }

// Enable opens the device, starts the read loop and resets the
// controller.
func (h *HCI) Enable(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errors.Wrap(io.ErrClosedPipe, "enable")
	}
	h.mu.Unlock()

	if h.devID < 0 {
		n, err := firstDevice()
		if err != nil {
			return err
		}
		h.devID = n
	}
	if h.powerOff {
		if err := powerOffBlueZ(h.devID); err != nil {
			h.log.WithError(err).Warn("BlueZ power off failed")
		}
	}
	d, err := h.open(h.devID)
	if err != nil {
		return errors.Wrapf(err, "open hci%d", h.devID)
	}
	h.d = d
	h.c = newCmd(d, h.log)
	h.e = newEvent()
	h.e.trace = h.log.Debugf
	h.e.handleEvent(commandComplete, handlerFunc(h.c.handleComplete))
	h.e.handleEvent(commandStatus, handlerFunc(h.c.handleStatus))
	h.e.handleEvent(leMeta, handlerFunc(h.handleLEMeta))
	go h.mainLoop()

	return h.resetDevice(ctx)
}

// Close closes the device and the event channel. It is safe to call more
// than once.
func (h *HCI) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.events)
	h.mu.Unlock()

	if h.c != nil {
		h.c.close()
	}
	if h.d != nil {
		return h.d.Close()
	}
	return nil
}

func firstDevice() (int, error) {
	dd, err := Devices()
	if err != nil {
		return 0, err
	}
	if len(dd) == 0 {
		return 0, errors.New("no HCI devices")
	}
	return int(dd[0].DevID), nil
}

func (h *HCI) resetDevice(ctx context.Context) error {
	seq := []cmdParam{
		reset{},
		setEventMask{eventMask: defaultEventMask},
		leSetEventMask{leEventMask: defaultLEEventMask},
	}
	for _, s := range seq {
		if _, err := h.exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// exec sends cp bounded by the command timeout.
func (h *HCI) exec(ctx context.Context, cp cmdParam) ([]byte, error) {
	if h.c == nil {
		return nil, &aoa.StatusError{Op: cp.opcode().String(), Status: 0x0C}
	}
	ctx, cancel := context.WithTimeout(ctx, h.cmdTimeout)
	defer cancel()
	return h.c.sendAndCheckResp(ctx, cp)
}

func (h *HCI) mainLoop() {
	b := make([]byte, 4096)
	for {
		n, err := h.d.Read(b)
		if err != nil || n == 0 {
			h.mu.Lock()
			closed := h.closed
			h.mu.Unlock()
			if !closed {
				h.log.WithError(err).Error("HCI read loop stopped")
			}
			return
		}
		p := make([]byte, n)
		copy(p, b)
		h.handlePacket(p)
	}
}

func (h *HCI) handlePacket(b []byte) {
	t, b := packetType(b[0]), b[1:]
	var err error
	switch t {
	case typEventPkt:
		err = h.e.dispatch(b)
	case typCommandPkt, typACLDataPkt, typSCODataPkt, typVendorPkt:
		h.log.Debugf("unmanaged packet type 0x%02X", uint8(t))
	default:
		err = errors.Errorf("unknown packet type 0x%02X", uint8(t))
	}
	if err != nil {
		h.log.Warnf("hci: %s, [ % X]", err, b)
	}
}

func (h *HCI) handleLEMeta(b []byte) error {
	evs, err := unmarshalLEMeta(b)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		ev = h.resolve(ev)
		h.track(ev)
		h.deliver(ev)
	}
	return nil
}

// track keeps the table of live syncs current.
func (h *HCI) track(ev aoa.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch e := ev.(type) {
	case aoa.SyncEstablished:
		if e.Status == 0 {
			h.syncs[e.Sync.Handle] = e.Sync
		}
	case aoa.SyncTerminated:
		delete(h.syncs, e.Sync.Handle)
	}
}

func (h *HCI) deliver(ev aoa.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	default:
		h.log.Warnf("Event channel full, dropping %T", ev)
	}
}

// resolve fills in the sync identity on events that only carry a sync
// handle.
func (h *HCI) resolve(ev aoa.Event) aoa.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch e := ev.(type) {
	case aoa.PerAdvReport:
		if s, ok := h.syncs[e.Sync.Handle]; ok {
			e.Sync = s
		}
		return e
	case aoa.SyncTerminated:
		if s, ok := h.syncs[e.Sync.Handle]; ok {
			e.Sync = s
		}
		return e
	}
	return ev
}

// StartAdvertising implements aoa.Stack with the legacy advertising
// commands.
func (h *HCI) StartAdvertising(ctx context.Context, p aoa.AdvParams, ad, sd []byte) error {
	if len(ad) > aoa.MaxEIRPacketLength || len(sd) > aoa.MaxEIRPacketLength {
		return aoa.ErrEIRPacketTooLong
	}
	typ := uint8(aoa.AdvNonconnInd)
	if p.Connectable {
		typ = aoa.AdvInd
	} else if len(sd) > 0 {
		typ = aoa.AdvScanInd
	}
	chm := p.ChannelMap
	if chm == 0 {
		chm = allChannels
	}
	adv := leSetAdvertisingData{advertisingDataLength: uint8(len(ad))}
	copy(adv.advertisingData[:], ad)
	rsp := leSetScanResponseData{scanResponseDataLength: uint8(len(sd))}
	copy(rsp.scanResponseData[:], sd)
	seq := []cmdParam{
		leSetAdvertisingParameters{
			advertisingIntervalMin: p.IntervalMin,
			advertisingIntervalMax: p.IntervalMax,
			advertisingType:        typ,
			advertisingChannelMap:  chm,
		},
		adv,
		rsp,
		leSetAdvertiseEnable{advertisingEnable: 1},
	}
	for _, s := range seq {
		if _, err := h.exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// CreateExtAdv allocates the lowest free advertising handle and sets its
// parameters.
func (h *HCI) CreateExtAdv(ctx context.Context, p aoa.ExtAdvParams) (aoa.AdvSet, error) {
	h.mu.Lock()
	handle := -1
	for i := 0; i <= maxAdvHandle; i++ {
		if !h.sets[uint8(i)] {
			handle = i
			break
		}
	}
	h.mu.Unlock()
	if handle < 0 {
		return aoa.AdvSet{}, &aoa.StatusError{Op: opLESetExtAdvParameters.String(), Status: 0x07}
	}
	var props uint16
	if p.Connectable {
		props |= propConnectable
	}
	if p.Scannable {
		props |= propScannable
	}
	_, err := h.exec(ctx, leSetExtAdvParameters{
		advertisingHandle:     uint8(handle),
		advertisingEventProps: props,
		primaryIntervalMin:    p.IntervalMin,
		primaryIntervalMax:    p.IntervalMax,
		primaryChannelMap:     allChannels,
		advertisingTxPower:    txPowerNoPref,
		primaryPHY:            phy1M,
		secondaryPHY:          phy1M,
		advertisingSID:        p.SID,
	})
	if err != nil {
		return aoa.AdvSet{}, err
	}
	h.mu.Lock()
	h.sets[uint8(handle)] = true
	h.mu.Unlock()
	return aoa.AdvSet{Handle: uint8(handle), SID: p.SID}, nil
}

func (h *HCI) checkSet(op opcode, set aoa.AdvSet) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.sets[set.Handle] {
		return &aoa.StatusError{Op: op.String(), Status: statusUnknownAdvSet}
	}
	return nil
}

func (h *HCI) setCmd(ctx context.Context, set aoa.AdvSet, cp cmdParam) error {
	if err := h.checkSet(cp.opcode(), set); err != nil {
		return err
	}
	_, err := h.exec(ctx, cp)
	return err
}

func (h *HCI) SetExtAdvData(ctx context.Context, set aoa.AdvSet, ad []byte) error {
	if len(ad) > aoa.MaxExtAdvDataLength {
		return aoa.ErrEIRPacketTooLong
	}
	return h.setCmd(ctx, set, leSetExtAdvData{
		advertisingHandle:  set.Handle,
		operation:          opComplete,
		fragmentPreference: fragNone,
		advertisingData:    ad,
	})
}

func (h *HCI) StartExtAdv(ctx context.Context, set aoa.AdvSet, p aoa.ExtAdvStart) error {
	return h.setCmd(ctx, set, leSetExtAdvEnable{
		enable: 1,
		sets: []extAdvEnableSet{{
			advertisingHandle: set.Handle,
			duration:          p.Timeout,
			maxExtAdvEvents:   p.NumEvents,
		}},
	})
}

// DeleteExtAdv stops periodic and extended advertising on the set, then
// removes it. Only the removal's status is reported.
func (h *HCI) DeleteExtAdv(ctx context.Context, set aoa.AdvSet) error {
	if err := h.checkSet(opLERemoveAdvSet, set); err != nil {
		return err
	}
	h.exec(ctx, leSetPerAdvEnable{enable: 0, advertisingHandle: set.Handle})
	h.exec(ctx, leSetExtAdvEnable{enable: 0, sets: []extAdvEnableSet{{advertisingHandle: set.Handle}}})
	if _, err := h.exec(ctx, leRemoveAdvSet{advertisingHandle: set.Handle}); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.sets, set.Handle)
	h.mu.Unlock()
	return nil
}

func (h *HCI) SetPerAdvParams(ctx context.Context, set aoa.AdvSet, p aoa.PerAdvParams) error {
	var props uint16
	if p.IncludeTxPower {
		props |= perPropIncludeTxPower
	}
	return h.setCmd(ctx, set, leSetPerAdvParameters{
		advertisingHandle: set.Handle,
		intervalMin:       p.IntervalMin,
		intervalMax:       p.IntervalMax,
		properties:        props,
	})
}

func (h *HCI) SetPerAdvData(ctx context.Context, set aoa.AdvSet, data []byte) error {
	if len(data) > aoa.MaxExtAdvDataLength {
		return aoa.ErrEIRPacketTooLong
	}
	return h.setCmd(ctx, set, leSetPerAdvData{
		advertisingHandle: set.Handle,
		operation:         opComplete,
		advertisingData:   data,
	})
}

func (h *HCI) StartPerAdv(ctx context.Context, set aoa.AdvSet) error {
	return h.setCmd(ctx, set, leSetPerAdvEnable{enable: 1, advertisingHandle: set.Handle})
}

func (h *HCI) SetCTETxParams(ctx context.Context, set aoa.AdvSet, p aoa.CTETxParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.setCmd(ctx, set, leSetConnectionlessCTETxParameters{
		advertisingHandle: set.Handle,
		cteLength:         p.Length,
		cteType:           uint8(p.Type),
		cteCount:          p.Count,
		antennaIDs:        p.AntennaIDs,
	})
}

func (h *HCI) EnableCTETx(ctx context.Context, set aoa.AdvSet) error {
	return h.setCmd(ctx, set, leSetConnectionlessCTETxEnable{advertisingHandle: set.Handle, enable: 1})
}

// StartScan uses the extended scan commands on the LE 1M PHY so that
// extended advertising reports are delivered.
func (h *HCI) StartScan(ctx context.Context, p aoa.ScanParams) error {
	var typ uint8
	if p.Active {
		typ = 0x01
	}
	if _, err := h.exec(ctx, leSetExtScanParameters{
		scanType:     typ,
		scanInterval: p.Interval,
		scanWindow:   p.Window,
	}); err != nil {
		return err
	}
	var filter uint8 = 1
	if p.Dup {
		filter = 0
	}
	_, err := h.exec(ctx, leSetExtScanEnable{enable: 1, filterDuplicates: filter})
	return err
}

func (h *HCI) StopScan(ctx context.Context) error {
	_, err := h.exec(ctx, leSetExtScanEnable{enable: 0})
	return err
}

// CreateSync is answered with Command Status; the sync itself is
// reported later as aoa.SyncEstablished.
func (h *HCI) CreateSync(ctx context.Context, p aoa.SyncParams) error {
	_, err := h.exec(ctx, lePerAdvCreateSync{
		advertisingSID:     p.SID,
		advertiserAddrType: p.AddrType,
		advertiserAddress:  p.Addr,
		skip:               p.Skip,
		syncTimeout:        p.Timeout,
	})
	return err
}

func (h *HCI) checkSync(op opcode, s aoa.Sync) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.syncs[s.Handle]; !ok {
		return &aoa.StatusError{Op: op.String(), Status: statusUnknownSync}
	}
	return nil
}

func (h *HCI) EnableCTERx(ctx context.Context, s aoa.Sync, p aoa.CTERxParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := h.checkSync(opLESetConnectionlessIQSamplingEn, s); err != nil {
		return err
	}
	_, err := h.exec(ctx, leSetConnectionlessIQSamplingEnable{
		syncHandle:     s.Handle,
		enable:         1,
		slotDurations:  uint8(p.SlotDuration),
		maxSampledCTEs: p.MaxCount,
		antennaIDs:     p.AntennaIDs,
	})
	return err
}

func (h *HCI) TerminateSync(ctx context.Context, s aoa.Sync) error {
	if err := h.checkSync(opLEPerAdvTerminateSync, s); err != nil {
		return err
	}
	if _, err := h.exec(ctx, lePerAdvTerminateSync{syncHandle: s.Handle}); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.syncs, s.Handle)
	h.mu.Unlock()
	return nil
}
