package linux

import (
	"context"
	"io"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/XC-/aoa"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// fakeDev answers every command with a Command Complete (or Command
// Status for Create Sync) carrying the configured status.
type fakeDev struct {
	mu      sync.Mutex
	written []opcode
	status  map[opcode]uint8
	silent  map[opcode]bool

	rx     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeDev() *fakeDev {
	return &fakeDev{
		status: map[opcode]uint8{},
		silent: map[opcode]bool{},
		rx:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (d *fakeDev) Write(b []byte) (int, error) {
	op := opcode(uint16(b[1]) | uint16(b[2])<<8)
	d.mu.Lock()
	d.written = append(d.written, op)
	st, silent := d.status[op], d.silent[op]
	d.mu.Unlock()
	if silent {
		return len(b), nil
	}
	if op == opLEPerAdvCreateSync {
		d.rx <- []byte{byte(typEventPkt), byte(commandStatus), 4, st, 1, byte(op), byte(op >> 8)}
	} else {
		d.rx <- []byte{byte(typEventPkt), byte(commandComplete), 4, 1, byte(op), byte(op >> 8), st}
	}
	return len(b), nil
}

func (d *fakeDev) Read(b []byte) (int, error) {
	select {
	case p := <-d.rx:
		return copy(b, p), nil
	case <-d.closed:
		return 0, io.EOF
	}
}

func (d *fakeDev) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDev) ops() []opcode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]opcode(nil), d.written...)
}

func (d *fakeDev) meta(b ...byte) {
	d.rx <- append([]byte{byte(typEventPkt), byte(leMeta), byte(len(b))}, b...)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = ioutil.Discard
	return logrus.NewEntry(l)
}

func newTestHCI(t *testing.T, d *fakeDev, opts ...Option) *HCI {
	opts = append([]Option{
		Logger(testLogger()),
		withOpener(func(int) (io.ReadWriteCloser, error) { return d, nil }),
	}, opts...)
	h := New(opts...)
	if err := h.Enable(context.Background()); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	return h
}

func equalOps(a, b []opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEnableResetsController(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	defer h.Close()

	want := []opcode{opReset, opSetEventMask, opLESetEventMask}
	if got := d.ops(); !equalOps(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestEnableOpenFailure(t *testing.T) {
	h := New(Logger(testLogger()), withOpener(func(int) (io.ReadWriteCloser, error) {
		return nil, ErrNotSupported
	}))
	defer h.Close()
	if err := h.Enable(context.Background()); errors.Cause(err) != ErrNotSupported {
		t.Errorf("got %v want ErrNotSupported", err)
	}
}

func TestCommandStatus(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	defer h.Close()

	d.mu.Lock()
	d.status[opLESetExtAdvParameters] = 0x12
	d.mu.Unlock()
	_, err := h.CreateExtAdv(context.Background(), aoa.DefaultExtAdvNConn)
	if got := aoa.Status(err); got != 0x12 {
		t.Errorf("CreateExtAdv: got status %d want 0x12 (%v)", got, err)
	}
}

func TestCommandTimeout(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d, CommandTimeout(20*time.Millisecond))
	defer h.Close()

	d.mu.Lock()
	d.silent[opLESetExtScanParameters] = true
	d.mu.Unlock()
	err := h.StartScan(context.Background(), aoa.DefaultScanPassive)
	if errors.Cause(err) != context.DeadlineExceeded {
		t.Errorf("got %v want deadline exceeded", err)
	}
}

func TestExtAdvLifecycle(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	defer h.Close()
	ctx := context.Background()

	set, err := h.CreateExtAdv(ctx, aoa.DefaultExtAdvNConn)
	if err != nil {
		t.Fatalf("CreateExtAdv: %v", err)
	}
	if set.Handle != 0 {
		t.Errorf("first handle: got %d want 0", set.Handle)
	}
	next, err := h.CreateExtAdv(ctx, aoa.DefaultExtAdvNConn)
	if err != nil || next.Handle != 1 {
		t.Errorf("second handle: got %d, %v want 1", next.Handle, err)
	}
	if err := h.SetExtAdvData(ctx, set, make([]byte, aoa.MaxExtAdvDataLength+1)); err != aoa.ErrEIRPacketTooLong {
		t.Errorf("oversized data: got %v", err)
	}
	if err := h.DeleteExtAdv(ctx, set); err != nil {
		t.Fatalf("DeleteExtAdv: %v", err)
	}
	if err := h.StartExtAdv(ctx, set, aoa.ExtAdvStart{}); aoa.Status(err) != statusUnknownAdvSet {
		t.Errorf("deleted set: got %v", err)
	}
	again, err := h.CreateExtAdv(ctx, aoa.DefaultExtAdvNConn)
	if err != nil || again.Handle != 0 {
		t.Errorf("reused handle: got %d, %v want 0", again.Handle, err)
	}
}

func TestStartAdvertisingTooLong(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	defer h.Close()

	n := len(d.ops())
	err := h.StartAdvertising(context.Background(), aoa.AdvParams{}, make([]byte, aoa.MaxEIRPacketLength+1), nil)
	if err != aoa.ErrEIRPacketTooLong {
		t.Errorf("got %v want ErrEIRPacketTooLong", err)
	}
	if got := len(d.ops()); got != n {
		t.Errorf("%d commands sent for rejected data", got-n)
	}
}

func nextEvent(t *testing.T, h *HCI) aoa.Event {
	select {
	case ev := <-h.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return nil
}

func TestSyncEvents(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	defer h.Close()
	ctx := context.Background()

	addr := aoa.Addr{1, 2, 3, 4, 5, 6}
	if err := h.CreateSync(ctx, aoa.SyncParams{Addr: addr, Timeout: aoa.DefaultSyncTimeout}); err != nil {
		t.Fatalf("CreateSync: %v", err)
	}
	d.meta(lePerAdvSyncEstablished, 0x00, 0x07, 0x00, 0x00, 0x00, 1, 2, 3, 4, 5, 6, 0x01, 0x50, 0x00, 0x05)
	se, ok := nextEvent(t, h).(aoa.SyncEstablished)
	if !ok || se.Sync.Handle != 7 || se.Sync.Addr != addr {
		t.Fatalf("got %#v", se)
	}
	if err := h.EnableCTERx(ctx, se.Sync, aoa.DefaultCTERx); err != nil {
		t.Fatalf("EnableCTERx: %v", err)
	}

	d.meta(lePerAdvReport, 0x07, 0x00, 0x7F, 0xCE, 0x00, 0x00, 0x01, 0xAA)
	pr, ok := nextEvent(t, h).(aoa.PerAdvReport)
	if !ok || pr.Sync != se.Sync {
		t.Errorf("periodic report sync: got %#v want %#v", pr.Sync, se.Sync)
	}

	d.meta(lePerAdvSyncLost, 0x07, 0x00)
	st, ok := nextEvent(t, h).(aoa.SyncTerminated)
	if !ok || st.Sync != se.Sync {
		t.Errorf("sync lost: got %#v", st)
	}
	if err := h.TerminateSync(ctx, se.Sync); aoa.Status(err) != statusUnknownSync {
		t.Errorf("TerminateSync after loss: got %v", err)
	}
}

func TestCloseClosesEvents(t *testing.T) {
	d := newFakeDev()
	h := newTestHCI(t, d)
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-h.Events(); ok {
		t.Error("event channel still open")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := h.CreateExtAdv(context.Background(), aoa.DefaultExtAdvNConn); err == nil {
		t.Error("command succeeded after Close")
	}
}
