package linux

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type device struct {
	fd  int
	rmu *sync.Mutex
	wmu *sync.Mutex
}

func newSocket(n int) (io.ReadWriteCloser, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}

	// attempt to use the linux 3.14 feature, if this fails with EINVAL fall back to raw access
	// on older kernels
	sa := unix.SockaddrHCI{Dev: uint16(n), Channel: unix.HCI_CHANNEL_USER}
	if err = unix.Bind(fd, &sa); err == unix.EINVAL {
		sa := unix.SockaddrHCI{Dev: uint16(n), Channel: unix.HCI_CHANNEL_RAW}
		err = unix.Bind(fd, &sa)
	}
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind hci%d", n)
	}

	return &device{
		fd:  fd,
		rmu: &sync.Mutex{},
		wmu: &sync.Mutex{},
	}, nil
}

func (d device) Read(b []byte) (int, error) {
	d.rmu.Lock()
	defer d.rmu.Unlock()
	return unix.Read(d.fd, b)
}

func (d device) Write(b []byte) (int, error) {
	d.wmu.Lock()
	defer d.wmu.Unlock()
	return unix.Write(d.fd, b)
}

func (d device) Close() error {
	return unix.Close(d.fd)
}
