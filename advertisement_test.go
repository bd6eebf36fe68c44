package aoa

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseAD(t *testing.T) {
	cases := []struct {
		b       []byte
		stopAt  int // stop after this many elements, 0 never
		want    []ADElement
		wantErr error
	}{
		{
			b: []byte{0x02, 0x01, 0x06, 0x03, 0x09, 'a', 'b'},
			want: []ADElement{
				{Type: 0x01, Data: []byte{0x06}},
				{Type: 0x09, Data: []byte("ab")},
			},
		},
		{
			// zero length ends the significant part
			b:    []byte{0x02, 0x01, 0x06, 0x00, 0xFF, 0xFF},
			want: []ADElement{{Type: 0x01, Data: []byte{0x06}}},
		},
		{
			b:      []byte{0x02, 0x01, 0x06, 0x03, 0x09, 'a', 'b'},
			stopAt: 1,
			want:   []ADElement{{Type: 0x01, Data: []byte{0x06}}},
		},
		{
			b:       []byte{0x02, 0x01, 0x06, 0x05, 0x09, 'a'},
			want:    []ADElement{{Type: 0x01, Data: []byte{0x06}}},
			wantErr: ErrMalformedAD,
		},
		{
			b: nil,
		},
	}
	for _, tt := range cases {
		var got []ADElement
		err := ParseAD(tt.b, func(e ADElement) bool {
			got = append(got, e)
			return tt.stopAt == 0 || len(got) < tt.stopAt
		})
		if err != tt.wantErr {
			t.Errorf("ParseAD(%x): got err %v want %v", tt.b, err, tt.wantErr)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseAD(%x): got %v want %v", tt.b, got, tt.want)
		}
	}
}

func TestCompleteLocalName(t *testing.T) {
	long := bytes.Repeat([]byte{'x'}, 40)
	cases := []struct {
		b     []byte
		want  string
		found bool
	}{
		{b: []byte{0x02, 0x01, 0x06, 0x0B, 0x09, 'A', 'o', 'A', '_', 'T', 'X', '_', 'S', 'i', 'm'}, want: "AoA_TX_Sim", found: true},
		{b: []byte{0x04, 0x08, 'A', 'o', 'A'}, found: false},
		{b: append([]byte{41, 0x09}, long...), want: string(long[:MaxNameLength]), found: true},
		{b: []byte{0x01, 0x09}, want: "", found: true},
		{b: nil},
	}
	for _, tt := range cases {
		got, found := CompleteLocalName(tt.b)
		if got != tt.want || found != tt.found {
			t.Errorf("CompleteLocalName(%x): got %q, %v want %q, %v", tt.b, got, found, tt.want, tt.found)
		}
	}
}

func TestAdvertisementUnmarshall(t *testing.T) {
	b := []byte{
		0x02, 0x01, 0x06,
		0x05, 0x03, 0x0F, 0x18, 0xFE, 0xFA,
		0x05, 0x08, 'A', 'o', 'A', '_',
		0x02, 0x0A, 0xF4,
		0x04, 0xFF, 0x59, 0x00, 0x01,
	}
	var a Advertisement
	if err := a.Unmarshall(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Advertisement{
		LocalName:        "AoA_",
		Flags:            0x06,
		Services:         []uint16{BatteryService, 0xFAFE},
		ManufacturerData: []byte{0x59, 0x00, 0x01},
		TxPowerLevel:     -12,
		Connectable:      true,
	}
	if !reflect.DeepEqual(a, want) {
		t.Errorf("got %+v want %+v", a, want)
	}

	if err := new(Advertisement).Unmarshall([]byte{0x03, 0x01, 0x06, 0x06}); err != ErrMalformedAD {
		t.Errorf("bad flags: got %v want ErrMalformedAD", err)
	}
}
