//go:build !linux
// +build !linux

package linux

// DeviceInfo describes an HCI device.
type DeviceInfo struct {
	DevID uint16
}

func (di *DeviceInfo) Name() string { return "" }
func (di *DeviceInfo) Addr() string { return "" }
func (di *DeviceInfo) Up() bool     { return false }

// Devices lists the HCI devices the kernel knows about.
func Devices() ([]*DeviceInfo, error) { return nil, ErrNotSupported }
