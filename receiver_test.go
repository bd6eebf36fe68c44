package aoa

import (
	"bytes"
	"testing"
)

func TestReceiverMatches(t *testing.T) {
	r := NewReceiver(DefaultTarget)
	cases := []struct {
		ad   []byte
		want bool
	}{
		{append([]byte{0x02, 0x01, 0x06, 0x0B, typeCompleteName}, DefaultTarget...), true},
		{append([]byte{0x0B, typeShortName}, DefaultTarget...), false},
		{append([]byte{0x0A, typeCompleteName}, DefaultTarget[:9]...), false},
		{[]byte{0x02, 0x01, 0x06}, false},
		{nil, false},
	}
	for _, tt := range cases {
		if got := r.Matches(tt.ad); got != tt.want {
			t.Errorf("Matches(%x) = %v want %v", tt.ad, got, tt.want)
		}
	}
}

func TestBeaconAdvertisingData(t *testing.T) {
	ad, err := NewBeacon("AoA").AdvertisingData()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, typeFlags, 0x06, 0x04, typeCompleteName, 'A', 'o', 'A'}
	if !bytes.Equal(ad, want) {
		t.Errorf("got %x want %x", ad, want)
	}

	ad, err = NewBeacon("A_Name_That_Does_Not_Fit_In_Legacy").AdvertisingData()
	if err != nil {
		t.Fatal(err)
	}
	if len(ad) != 31 || ad[4] != typeShortName {
		t.Errorf("long name: got %x", ad)
	}
}

func TestParseTxMode(t *testing.T) {
	for s, want := range map[string]TxMode{"": TxBasic, "basic": TxBasic, "periodic": TxPeriodic} {
		if got, err := ParseTxMode(s); err != nil || got != want {
			t.Errorf("ParseTxMode(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseTxMode("burst"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
