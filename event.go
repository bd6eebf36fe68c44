package aoa

// Event is something the stack reports asynchronously.
type Event interface {
	eventName() string
}

// Advertising report event types.
const (
	AdvInd        = 0x00 // Connectable undirected advertising (ADV_IND).
	AdvDirectInd  = 0x01 // Connectable directed advertising (ADV_DIRECT_IND)
	AdvScanInd    = 0x02 // Scannable undirected advertising (ADV_SCAN_IND)
	AdvNonconnInd = 0x03 // Non connectable undirected advertising (ADV_NONCONN_IND)
	ScanRsp       = 0x04 // Scan Response (SCAN_RSP)
	AdvExt        = 0x10 // Extended advertising PDU
)

// AdvReport is one advertising report seen while scanning.
type AdvReport struct {
	Addr     Addr
	AddrType uint8
	RSSI     int8
	Type     uint8
	SID      uint8
	Interval uint16 // periodic advertising interval, 0 if none
	Data     []byte
}

// SyncEstablished reports the outcome of CreateSync.
type SyncEstablished struct {
	Sync   Sync
	Status uint8
}

// PerAdvReport is one periodic advertising packet received on a sync.
type PerAdvReport struct {
	Sync    Sync
	TxPower int8
	RSSI    int8
	CTEType CTEType
	Data    []byte
}

// SyncTerminated reports that a periodic sync was lost or terminated.
type SyncTerminated struct {
	Sync   Sync
	Reason uint8
}

func (AdvReport) eventName() string       { return "adv report" }
func (SyncEstablished) eventName() string { return "sync established" }
func (PerAdvReport) eventName() string    { return "periodic report" }
func (SyncTerminated) eventName() string  { return "sync terminated" }
