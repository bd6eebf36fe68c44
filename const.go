package aoa

// This file includes constants from the BLE spec.

// MaxEIRPacketLength is the maximum allowed legacy advertising
// and scan response packet length.
const MaxEIRPacketLength = 31

// MaxExtAdvDataLength is the maximum extended or periodic advertising
// data carried in a single HCI fragment.
const MaxExtAdvDataLength = 251

// MaxNameLength bounds the local name copied out of a scanned report.
const MaxNameLength = 31

// advertising data field types
const (
	typeFlags            = 0x01 // Flags
	typeSomeUUID16       = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	typeAllUUID16        = 0x03 // Complete List of 16-bit Service Class UUIDs
	typeSomeUUID32       = 0x04 // Incomplete List of 32-bit Service Class UUIDs
	typeAllUUID32        = 0x05 // Complete List of 32-bit Service Class UUIDs
	typeSomeUUID128      = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	typeAllUUID128       = 0x07 // Complete List of 128-bit Service Class UUIDs
	typeShortName        = 0x08 // Shortened Local Name
	typeCompleteName     = 0x09 // Complete Local Name
	typeTxPower          = 0x0A // Tx Power Level
	typeServiceData16    = 0x16 // Service Data - 16-bit UUID
	typeServiceData32    = 0x20 // Service Data - 32-bit UUID
	typeServiceData128   = 0x21 // Service Data - 128-bit UUID
	typeManufacturerData = 0xFF // Manufacturer Specific Data
)

// Exported aliases for the AD types callers commonly match on.
const (
	ADFlags        = typeFlags
	ADAllUUID16    = typeAllUUID16
	ADShortName    = typeShortName
	ADCompleteName = typeCompleteName
)

// flag bits
const (
	FlagLimitedDiscoverable = 1 << iota // LE Limited Discoverable Mode
	FlagGeneralDiscoverable             // LE General Discoverable Mode
	FlagLEOnly                          // BR/EDR Not Supported.
)

// BatteryService is the 16-bit UUID of the Battery Service, advertised by
// the periodic CTE transmitter.
const BatteryService uint16 = 0x180F

// Legacy advertising intervals, in units of 0.625 ms.
const (
	AdvFastIntervalMin2 uint16 = 0x00A0 // 100 ms
	AdvFastIntervalMax2 uint16 = 0x00F0 // 150 ms
)

// Periodic advertising intervals, in units of 1.25 ms.
const (
	PerAdvMinInterval uint16 = 0x0006
	PerAdvMaxInterval uint16 = 0xFFFF
)

// Scan parameters, in units of 0.625 ms.
const (
	ScanFastInterval uint16 = 0x0060 // 60 ms
	ScanFastWindow   uint16 = 0x0030 // 30 ms
)

// DefaultSyncTimeout is the periodic sync supervision timeout, in units
// of 10 ms.
const DefaultSyncTimeout uint16 = 400
