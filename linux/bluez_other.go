//go:build !linux
// +build !linux

package linux

func powerOffBlueZ(n int) error { return ErrNotSupported }
