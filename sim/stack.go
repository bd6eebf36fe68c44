// Package sim provides an in-memory aoa.Stack for hosts without a BLE
// controller and for tests.
//
// The stack records every call, can fail any operation with a chosen
// status, and can emulate one remote transmitter: its advertising report
// shows up when scanning starts, a sync is established when one is
// requested, and periodic reports follow once CTE sampling is enabled.
package sim

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/XC-/aoa"
)

// Operation names, as recorded by Calls and accepted by Fail.
const (
	OpEnable           = "Enable"
	OpClose            = "Close"
	OpStartAdvertising = "StartAdvertising"
	OpCreateExtAdv     = "CreateExtAdv"
	OpSetExtAdvData    = "SetExtAdvData"
	OpStartExtAdv      = "StartExtAdv"
	OpDeleteExtAdv     = "DeleteExtAdv"
	OpSetPerAdvParams  = "SetPerAdvParams"
	OpSetPerAdvData    = "SetPerAdvData"
	OpStartPerAdv      = "StartPerAdv"
	OpSetCTETxParams   = "SetCTETxParams"
	OpEnableCTETx      = "EnableCTETx"
	OpStartScan        = "StartScan"
	OpStopScan         = "StopScan"
	OpCreateSync       = "CreateSync"
	OpEnableCTERx      = "EnableCTERx"
	OpTerminateSync    = "TerminateSync"
)

// Controller status codes the stack reports.
const (
	StatusUnknownSync   = 0x02 // Unknown Connection Identifier
	StatusDisallowed    = 0x0C // Command Disallowed
	StatusSyncLost      = 0x3E // Connection Failed to be Established / Synchronization Timeout
	StatusUnknownAdvSet = 0x42 // Unknown Advertising Identifier
)

const (
	eventBufferSize       = 256
	defaultPeriodicReport = 3
)

var _ aoa.Stack = (*Stack)(nil)

// Peer is an emulated remote CTE transmitter.
type Peer struct {
	Name     string
	Addr     aoa.Addr
	AddrType uint8
	SID      uint8
	RSSI     int8
	Data     []byte // periodic advertising payload
	Reports  int    // periodic reports after CTE sampling is enabled
	LoseSync bool   // terminate the sync after the last report
}

// Stack is an in-memory aoa.Stack. The zero value is not usable; call
// New.
type Stack struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]uint8
	events   chan aoa.Event
	closed   bool
	enabled  bool
	scanning bool
	peer     *Peer
	log      *logrus.Entry

	nextSet  uint8
	nextSync uint16
	sets     map[uint8]bool
	syncs    map[uint16]aoa.Sync

	advData    []byte
	perAdvData []byte
	syncParams aoa.SyncParams
	cteTx      aoa.CTETxParams
	cteRx      aoa.CTERxParams
}

// Option configures a Stack.
type Option func(*Stack)

// WithPeer emulates p.
func WithPeer(p Peer) Option {
	return func(s *Stack) {
		if p.Reports == 0 {
			p.Reports = defaultPeriodicReport
		}
		s.peer = &p
	}
}

// WithLogger sets the logger used for dropped events.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Stack) { s.log = l }
}

// New returns an idle stack.
func New(opts ...Option) *Stack {
	s := &Stack{
		fail:   map[string]uint8{},
		events: make(chan aoa.Event, eventBufferSize),
		sets:   map[uint8]bool{},
		syncs:  map[uint16]aoa.Sync{},
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("stack", "sim")
	return s
}

// Fail makes every later call of op return status.
func (s *Stack) Fail(op string, status uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = status
}

// Calls returns the operations called so far, in order.
func (s *Stack) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times op was called.
func (s *Stack) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == op {
			n++
		}
	}
	return n
}

// AdvData returns the last legacy or extended advertising data set.
func (s *Stack) AdvData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advData
}

// PerAdvData returns the last periodic advertising data set.
func (s *Stack) PerAdvData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perAdvData
}

// SyncParams returns the parameters of the last CreateSync.
func (s *Stack) SyncParams() aoa.SyncParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncParams
}

// CTETx returns the last CTE transmit parameters set.
func (s *Stack) CTETx() aoa.CTETxParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cteTx
}

// CTERx returns the last CTE sampling parameters enabled.
func (s *Stack) CTERx() aoa.CTERxParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cteRx
}

// Inject queues ev for delivery. Events injected after Close are dropped.
func (s *Stack) Inject(ev aoa.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inject(ev)
}

func (s *Stack) inject(ev aoa.Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Warnf("event buffer full, dropping %T", ev)
	}
}

// call records op and returns its injected failure, if any. If needEnable
// is set a call before Enable is disallowed. Callers hold s.mu.
func (s *Stack) call(ctx context.Context, op string, needEnable bool) error {
	s.calls = append(s.calls, op)
	if err := ctx.Err(); err != nil {
		return err
	}
	if st, ok := s.fail[op]; ok {
		return &aoa.StatusError{Op: op, Status: st}
	}
	if needEnable && !s.enabled {
		return &aoa.StatusError{Op: op, Status: StatusDisallowed}
	}
	return nil
}

// Events returns the event channel.
func (s *Stack) Events() <-chan aoa.Event { return s.events }

// Enable marks the stack enabled.
func (s *Stack) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpEnable, false); err != nil {
		return err
	}
	s.enabled = true
	return nil
}

// Close closes the event channel. Calling Close more than once is a no-op.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, OpClose)
	if !s.closed {
		s.closed = true
		s.enabled = false
		close(s.events)
	}
	return nil
}

// StartAdvertising records ad as the advertising data.
func (s *Stack) StartAdvertising(ctx context.Context, p aoa.AdvParams, ad, sd []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpStartAdvertising, true); err != nil {
		return err
	}
	s.advData = append([]byte(nil), ad...)
	return nil
}

// CreateExtAdv allocates a new set handle.
func (s *Stack) CreateExtAdv(ctx context.Context, p aoa.ExtAdvParams) (aoa.AdvSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpCreateExtAdv, true); err != nil {
		return aoa.AdvSet{}, err
	}
	set := aoa.AdvSet{Handle: s.nextSet, SID: p.SID}
	s.sets[set.Handle] = true
	s.nextSet++
	return set, nil
}

// checkSet validates a set handle. Callers hold s.mu.
func (s *Stack) checkSet(op string, set aoa.AdvSet) error {
	if !s.sets[set.Handle] {
		return &aoa.StatusError{Op: op, Status: StatusUnknownAdvSet}
	}
	return nil
}

// SetExtAdvData records ad as the advertising data.
func (s *Stack) SetExtAdvData(ctx context.Context, set aoa.AdvSet, ad []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpSetExtAdvData, true); err != nil {
		return err
	}
	if err := s.checkSet(OpSetExtAdvData, set); err != nil {
		return err
	}
	s.advData = append([]byte(nil), ad...)
	return nil
}

// StartExtAdv starts set.
func (s *Stack) StartExtAdv(ctx context.Context, set aoa.AdvSet, p aoa.ExtAdvStart) error {
	return s.setOp(ctx, OpStartExtAdv, set)
}

// DeleteExtAdv releases set.
func (s *Stack) DeleteExtAdv(ctx context.Context, set aoa.AdvSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpDeleteExtAdv, true); err != nil {
		return err
	}
	if err := s.checkSet(OpDeleteExtAdv, set); err != nil {
		return err
	}
	delete(s.sets, set.Handle)
	return nil
}

// SetPerAdvParams configures periodic advertising on set.
func (s *Stack) SetPerAdvParams(ctx context.Context, set aoa.AdvSet, p aoa.PerAdvParams) error {
	return s.setOp(ctx, OpSetPerAdvParams, set)
}

// SetPerAdvData records data as the periodic advertising data.
func (s *Stack) SetPerAdvData(ctx context.Context, set aoa.AdvSet, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpSetPerAdvData, true); err != nil {
		return err
	}
	if err := s.checkSet(OpSetPerAdvData, set); err != nil {
		return err
	}
	s.perAdvData = append([]byte(nil), data...)
	return nil
}

// StartPerAdv starts periodic advertising on set.
func (s *Stack) StartPerAdv(ctx context.Context, set aoa.AdvSet) error {
	return s.setOp(ctx, OpStartPerAdv, set)
}

// SetCTETxParams records p.
func (s *Stack) SetCTETxParams(ctx context.Context, set aoa.AdvSet, p aoa.CTETxParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpSetCTETxParams, true); err != nil {
		return err
	}
	if err := s.checkSet(OpSetCTETxParams, set); err != nil {
		return err
	}
	s.cteTx = p
	return nil
}

// EnableCTETx enables CTE transmission on set.
func (s *Stack) EnableCTETx(ctx context.Context, set aoa.AdvSet) error {
	return s.setOp(ctx, OpEnableCTETx, set)
}

func (s *Stack) setOp(ctx context.Context, op string, set aoa.AdvSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, op, true); err != nil {
		return err
	}
	return s.checkSet(op, set)
}

// StartScan starts scanning. An emulated peer is reported right away.
func (s *Stack) StartScan(ctx context.Context, p aoa.ScanParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpStartScan, true); err != nil {
		return err
	}
	s.scanning = true
	if s.peer != nil {
		ad := aoa.NewExtAdvPacket()
		ad.AppendFlags(aoa.FlagGeneralDiscoverable | aoa.FlagLEOnly)
		ad.AppendName(s.peer.Name)
		s.inject(aoa.AdvReport{
			Addr:     s.peer.Addr,
			AddrType: s.peer.AddrType,
			RSSI:     s.peer.RSSI,
			Type:     aoa.AdvExt,
			SID:      s.peer.SID,
			Data:     ad.Bytes(),
		})
	}
	return nil
}

// StopScan stops scanning.
func (s *Stack) StopScan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpStopScan, true); err != nil {
		return err
	}
	if !s.scanning {
		return &aoa.StatusError{Op: OpStopScan, Status: StatusDisallowed}
	}
	s.scanning = false
	return nil
}

// CreateSync records p. If p addresses the emulated peer, a sync is
// established.
func (s *Stack) CreateSync(ctx context.Context, p aoa.SyncParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpCreateSync, true); err != nil {
		return err
	}
	s.syncParams = p
	if s.peer == nil || s.peer.Addr != p.Addr {
		return nil
	}
	sync := aoa.Sync{Handle: s.nextSync, Addr: p.Addr, AddrType: p.AddrType, SID: p.SID}
	s.nextSync++
	s.syncs[sync.Handle] = sync
	s.inject(aoa.SyncEstablished{Sync: sync})
	return nil
}

// EnableCTERx enables CTE sampling on sync. The emulated peer then sends
// its periodic reports.
func (s *Stack) EnableCTERx(ctx context.Context, sync aoa.Sync, p aoa.CTERxParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpEnableCTERx, true); err != nil {
		return err
	}
	if _, ok := s.syncs[sync.Handle]; !ok {
		return &aoa.StatusError{Op: OpEnableCTERx, Status: StatusUnknownSync}
	}
	s.cteRx = p
	if s.peer == nil {
		return nil
	}
	for i := 0; i < s.peer.Reports; i++ {
		s.inject(aoa.PerAdvReport{
			Sync:    sync,
			TxPower: 0,
			RSSI:    s.peer.RSSI,
			CTEType: aoa.CTETypeAoA,
			Data:    append([]byte(nil), s.peer.Data...),
		})
	}
	if s.peer.LoseSync {
		delete(s.syncs, sync.Handle)
		s.inject(aoa.SyncTerminated{Sync: sync, Reason: StatusSyncLost})
	}
	return nil
}

// TerminateSync releases sync.
func (s *Stack) TerminateSync(ctx context.Context, sync aoa.Sync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(ctx, OpTerminateSync, true); err != nil {
		return err
	}
	if _, ok := s.syncs[sync.Handle]; !ok {
		return &aoa.StatusError{Op: OpTerminateSync, Status: StatusUnknownSync}
	}
	delete(s.syncs, sync.Handle)
	return nil
}
