package linux

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	hciMaxDevices = 16

	hciGetDeviceList = 0x800448D2 // HCIGETDEVLIST, _IOR('H', 210, int)
	hciGetDeviceInfo = 0x800448D3 // HCIGETDEVINFO, _IOR('H', 211, int)

	hciDevUp = 1 << 0 // HCI_UP in DeviceInfo.Flags
)

type hciDeviceRequest struct {
	DevID  uint16
	DevOpt uint32
}

type hciDeviceListRequest struct {
	DevNum     uint16
	DevRequest [hciMaxDevices]hciDeviceRequest
}

// DeviceInfo mirrors the kernel's struct hci_dev_info.
type DeviceInfo struct {
	DevID  uint16
	name   [8]byte
	btAddr [6]byte

	Flags   uint32
	DevType uint8

	Features [8]uint8

	PktType    uint32
	LinkPolicy uint32
	LinkMode   uint32

	AclMtu  uint16
	AclPkts uint16
	ScoMtu  uint16
	ScoPkts uint16

	Stats DeviceStats
}

// DeviceStats mirrors the kernel's struct hci_dev_stats.
type DeviceStats struct {
	ErrRx  uint32
	ErrTx  uint32
	CmdTx  uint32
	EvtRx  uint32
	AclTx  uint32
	AclRx  uint32
	ScoTx  uint32
	ScoRx  uint32
	ByteRx uint32
	ByteTx uint32
}

func (di *DeviceInfo) Name() string {
	return string(bytes.TrimRight(di.name[:], "\x00"))
}

func (di *DeviceInfo) Addr() string {
	return fmt.Sprintf("%.2X:%.2X:%.2X:%.2X:%.2X:%.2X",
		di.btAddr[5], di.btAddr[4], di.btAddr[3], di.btAddr[2], di.btAddr[1], di.btAddr[0])
}

// Up reports whether the kernel has the device up. The user channel can
// only be bound to a device that is down.
func (di *DeviceInfo) Up() bool { return di.Flags&hciDevUp != 0 }

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// Devices lists the HCI devices the kernel knows about.
func Devices() ([]*DeviceInfo, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	defer unix.Close(fd)

	req := hciDeviceListRequest{DevNum: hciMaxDevices}
	if err := ioctl(fd, hciGetDeviceList, unsafe.Pointer(&req)); err != nil {
		return nil, errors.Wrap(err, "HCIGETDEVLIST")
	}

	dd := []*DeviceInfo{}
	for i := 0; i < int(req.DevNum); i++ {
		di := DeviceInfo{DevID: req.DevRequest[i].DevID}
		if err := ioctl(fd, hciGetDeviceInfo, unsafe.Pointer(&di)); err != nil {
			return dd, errors.Wrapf(err, "HCIGETDEVINFO hci%d", di.DevID)
		}
		dd = append(dd, &di)
	}
	return dd, nil
}
