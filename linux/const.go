package linux

type packetType uint8

// HCI Packet types
const (
	typCommandPkt packetType = 0x01
	typACLDataPkt packetType = 0x02
	typSCODataPkt packetType = 0x03
	typEventPkt   packetType = 0x04
	typVendorPkt  packetType = 0xFF
)

// Extended advertising event properties.
const (
	propConnectable = 1 << 0
	propScannable   = 1 << 1
)

// Extended advertising report event type bits.
const (
	extConnectable = 1 << 0
	extScannable   = 1 << 1
	extScanRsp     = 1 << 3
	extLegacy      = 1 << 4
)

// Data operations of the extended and periodic data commands.
const (
	opComplete = 0x03 // Complete extended advertising data
	fragNone   = 0x01 // The Controller should not fragment the data
)

// PHYs
const (
	phy1M = 0x01
)

// txPowerNoPref lets the controller pick the transmit power.
const txPowerNoPref = 0x7F

// Periodic advertising properties.
const perPropIncludeTxPower = 1 << 6

// Event masks set on reset. The LE mask enables connection and
// advertising report events plus the periodic sync events.
const (
	defaultEventMask   = 0x3dbff807fffbffff
	defaultLEEventMask = 0x000000000000F01F
)
