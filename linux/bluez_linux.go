package linux

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// powerOffBlueZ asks bluetoothd to power hci<n> down so the user channel
// can bind it. A missing adapter object is not an error: BlueZ may not
// be running at all.
func powerOffBlueZ(n int) error {
	bus, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(err, "connect system bus")
	}
	adapter := bus.Object("org.bluez", dbus.ObjectPath(fmt.Sprintf("/org/bluez/hci%d", n)))
	err = adapter.SetProperty("org.bluez.Adapter1.Powered", dbus.MakeVariant(false))
	if err, ok := err.(dbus.Error); ok {
		switch err.Name {
		case "org.freedesktop.DBus.Error.UnknownObject", "org.freedesktop.DBus.Error.ServiceUnknown":
			return nil
		}
	}
	return errors.Wrapf(err, "power off hci%d", n)
}
