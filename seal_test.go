package aoa

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

var testSalt = []byte("aoa-test-salt")

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer("secret", testSalt)
	if err != nil {
		t.Fatal(err)
	}
	pt := []byte{0x2A, 0x01}
	a, err := s.Seal(pt)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Seal(pt)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of the same reading are identical")
	}
	got, err := s.Open(a)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pt) {
		t.Errorf("got %x want %x", got, pt)
	}
}

func TestOpenRejects(t *testing.T) {
	s, err := NewSealer("secret", testSalt)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewSealer("other", testSalt)
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := s.Seal([]byte{0x10, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01

	for name, tt := range map[string]struct {
		s *Sealer
		b []byte
	}{
		"tampered":  {s, tampered},
		"short":     {s, sealed[:10]},
		"empty":     {s, nil},
		"wrong key": {other, sealed},
	} {
		if _, err := tt.s.Open(tt.b); errors.Cause(err) != ErrSealed {
			t.Errorf("%s: got %v want ErrSealed", name, err)
		}
	}
}

func TestNewSealerEmptyPassphrase(t *testing.T) {
	if _, err := NewSealer("", testSalt); err == nil {
		t.Error("expected an error for an empty passphrase")
	}
}
