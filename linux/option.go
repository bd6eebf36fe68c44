package linux

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// An Option configures an HCI.
type Option func(*HCI)

// DeviceID specifies which HCI device to use. The default is hci0.
// If n is -1 the first device the kernel lists is used.
func DeviceID(n int) Option {
	return func(h *HCI) { h.devID = n }
}

// PowerOffBlueZ asks BlueZ to power the adapter down before the user
// channel is opened. The kernel refuses the user channel on a device
// that is up.
func PowerOffBlueZ(b bool) Option {
	return func(h *HCI) { h.powerOff = b }
}

// CommandTimeout bounds the wait for each command's completion. It
// overrides DefaultCommandTimeout.
func CommandTimeout(d time.Duration) Option {
	return func(h *HCI) { h.cmdTimeout = d }
}

// Logger sets the entry used for stack logs.
func Logger(l *logrus.Entry) Option {
	return func(h *HCI) { h.log = l }
}

// withOpener replaces the socket constructor.
func withOpener(f func(n int) (io.ReadWriteCloser, error)) Option {
	return func(h *HCI) { h.open = f }
}
