package aoa

import (
	"context"
	"fmt"
)

// Addr is a Bluetooth device address, least significant byte first as it
// travels over HCI.
type Addr [6]byte

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

// Address types.
const (
	AddrPublic uint8 = 0x00
	AddrRandom uint8 = 0x01
)

// AdvSet is an extended advertising set created by the stack.
type AdvSet struct {
	Handle uint8
	SID    uint8
}

// Sync is an established periodic advertising synchronization.
type Sync struct {
	Handle   uint16
	Addr     Addr
	AddrType uint8
	SID      uint8
}

// AdvParams configures legacy advertising.
type AdvParams struct {
	IntervalMin uint16 // 0.625 ms units
	IntervalMax uint16
	Connectable bool
	ChannelMap  uint8 // 0 selects all three channels
}

// ExtAdvParams configures an extended advertising set.
type ExtAdvParams struct {
	SID         uint8
	IntervalMin uint32 // 0.625 ms units
	IntervalMax uint32
	Connectable bool
	Scannable   bool
}

// DefaultExtAdvNConn is a non-connectable, non-scannable extended set
// advertising at the fast interval.
var DefaultExtAdvNConn = ExtAdvParams{
	IntervalMin: uint32(AdvFastIntervalMin2),
	IntervalMax: uint32(AdvFastIntervalMax2),
}

// ExtAdvStart bounds an extended advertising run. Zero values advertise
// indefinitely.
type ExtAdvStart struct {
	Timeout   uint16 // 10 ms units
	NumEvents uint8
}

// PerAdvParams configures periodic advertising on a set.
type PerAdvParams struct {
	IntervalMin    uint16 // 1.25 ms units
	IntervalMax    uint16
	IncludeTxPower bool
}

// ScanParams configures scanning.
type ScanParams struct {
	Active   bool
	Interval uint16 // 0.625 ms units
	Window   uint16
	Dup      bool // report duplicates
}

// DefaultScanPassive is a passive scan at the fast interval.
var DefaultScanPassive = ScanParams{
	Interval: ScanFastInterval,
	Window:   ScanFastWindow,
}

// SyncParams requests a periodic advertising sync with a peer.
type SyncParams struct {
	Addr     Addr
	AddrType uint8
	SID      uint8
	Skip     uint16
	Timeout  uint16 // 10 ms units
}

// Stack is the BLE host stack the applications drive. Every method
// blocks until the stack has accepted or rejected the operation; results
// that arrive later are delivered on Events.
type Stack interface {
	// Enable powers up the controller and host stack.
	Enable(ctx context.Context) error

	// Close releases the controller and closes the event channel.
	Close() error

	// StartAdvertising starts legacy advertising with the given
	// advertising and scan response data.
	StartAdvertising(ctx context.Context, p AdvParams, ad, sd []byte) error

	CreateExtAdv(ctx context.Context, p ExtAdvParams) (AdvSet, error)
	SetExtAdvData(ctx context.Context, set AdvSet, ad []byte) error
	StartExtAdv(ctx context.Context, set AdvSet, p ExtAdvStart) error
	DeleteExtAdv(ctx context.Context, set AdvSet) error

	SetPerAdvParams(ctx context.Context, set AdvSet, p PerAdvParams) error
	SetPerAdvData(ctx context.Context, set AdvSet, data []byte) error
	StartPerAdv(ctx context.Context, set AdvSet) error

	SetCTETxParams(ctx context.Context, set AdvSet, p CTETxParams) error
	EnableCTETx(ctx context.Context, set AdvSet) error

	StartScan(ctx context.Context, p ScanParams) error
	StopScan(ctx context.Context) error

	// CreateSync requests a periodic sync. The outcome arrives as a
	// SyncEstablished event.
	CreateSync(ctx context.Context, p SyncParams) error
	EnableCTERx(ctx context.Context, sync Sync, p CTERxParams) error
	TerminateSync(ctx context.Context, sync Sync) error

	// Events delivers advertising reports and periodic sync events in
	// the order the stack produced them.
	Events() <-chan Event
}
