package linux

import (
	"reflect"
	"testing"

	"github.com/XC-/aoa"
)

func TestUnmarshalLEMeta(t *testing.T) {
	addr := aoa.Addr{1, 2, 3, 4, 5, 6}
	cases := []struct {
		name string
		b    []byte
		want []aoa.Event
	}{
		{
			name: "extended report",
			b: []byte{leExtendedAdvertisingReport, 0x01,
				0x00, 0x00, // non-legacy, non-connectable
				0x01, 1, 2, 3, 4, 5, 6, // random address
				0x01, 0x00, 0x03, 0x7F, 0xC4, // phys, SID 3, tx power, RSSI -60
				0x50, 0x00, // periodic interval
				0x00, 0, 0, 0, 0, 0, 0,
				0x03, 0x02, 0x01, 0x06},
			want: []aoa.Event{aoa.AdvReport{
				Addr:     addr,
				AddrType: aoa.AddrRandom,
				RSSI:     -60,
				Type:     aoa.AdvExt,
				SID:      3,
				Interval: 0x50,
				Data:     []byte{0x02, 0x01, 0x06},
			}},
		},
		{
			name: "legacy reports",
			b: []byte{leAdvertisingReport, 0x02,
				0x00, 0x04, // ADV_IND, SCAN_RSP
				0x00, 0x00,
				1, 2, 3, 4, 5, 6, 1, 2, 3, 4, 5, 6,
				0x01, 0x00,
				0xAA,
				0xD8, 0xD6},
			want: []aoa.Event{
				aoa.AdvReport{Addr: addr, Type: aoa.AdvInd, RSSI: -40, Data: []byte{0xAA}},
				aoa.AdvReport{Addr: addr, Type: aoa.ScanRsp, RSSI: -42},
			},
		},
		{
			name: "sync established",
			b: []byte{lePerAdvSyncEstablished,
				0x00, 0x01, 0x00, 0x03, 0x01, 1, 2, 3, 4, 5, 6,
				0x01, 0x50, 0x00, 0x05},
			want: []aoa.Event{aoa.SyncEstablished{
				Sync: aoa.Sync{Handle: 1, Addr: addr, AddrType: aoa.AddrRandom, SID: 3},
			}},
		},
		{
			name: "periodic report",
			b:    []byte{lePerAdvReport, 0x01, 0x00, 0x7F, 0xCE, 0x00, 0x00, 0x02, 0xAB, 0xCD},
			want: []aoa.Event{aoa.PerAdvReport{
				Sync:    aoa.Sync{Handle: 1},
				TxPower: 127,
				RSSI:    -50,
				CTEType: aoa.CTETypeAoA,
				Data:    []byte{0xAB, 0xCD},
			}},
		},
		{
			name: "sync lost",
			b:    []byte{lePerAdvSyncLost, 0x01, 0x00},
			want: []aoa.Event{aoa.SyncTerminated{Sync: aoa.Sync{Handle: 1}, Reason: statusSyncLost}},
		},
		{
			name: "ignored subevent",
			b:    []byte{leConnectionComplete, 0x00},
		},
	}
	for _, tt := range cases {
		got, err := unmarshalLEMeta(tt.b)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v want %#v", tt.name, got, tt.want)
		}
	}
}

func TestUnmarshalLEMetaMalformed(t *testing.T) {
	cases := [][]byte{
		{},
		{leExtendedAdvertisingReport, 0x01, 0x00},
		{leExtendedAdvertisingReport, 0x01,
			0x00, 0x00, 0x00, 1, 2, 3, 4, 5, 6, 0x01, 0x00, 0x00, 0x7F, 0x00,
			0x00, 0x00, 0x00, 0, 0, 0, 0, 0, 0,
			0x05, 0x01}, // data shorter than its length
		{leAdvertisingReport, 0x01, 0x00},
		{lePerAdvSyncEstablished, 0x00, 0x01},
		{lePerAdvReport, 0x01, 0x00, 0x7F, 0xCE, 0x00, 0x00, 0x04, 0xAB},
		{lePerAdvSyncLost, 0x01},
	}
	for _, b := range cases {
		if _, err := unmarshalLEMeta(b); err != errMalformed {
			t.Errorf("unmarshalLEMeta([ % X ]): got %v want errMalformed", b, err)
		}
	}
}

func TestExtEventType(t *testing.T) {
	cases := []struct {
		et   uint16
		want uint8
	}{
		{et: 0x0000, want: aoa.AdvExt},
		{et: 0x0013, want: aoa.AdvInd},
		{et: 0x0012, want: aoa.AdvScanInd},
		{et: 0x0010, want: aoa.AdvNonconnInd},
		{et: 0x001B, want: aoa.ScanRsp},
	}
	for _, tt := range cases {
		if got := extEventType(tt.et); got != tt.want {
			t.Errorf("extEventType(0x%04X): got 0x%02X want 0x%02X", tt.et, got, tt.want)
		}
	}
}

func TestEventHeader(t *testing.T) {
	var h eventHeader
	if err := h.unmarshal([]byte{0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.code != commandComplete || h.plen != 4 {
		t.Errorf("got %v", &h)
	}
	if err := h.unmarshal([]byte{0x0E, 0x05, 0x01}); err == nil {
		t.Error("wrong length accepted")
	}
}
