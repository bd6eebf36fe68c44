// Package aoa provides Bluetooth Low Energy Angle-of-Arrival demo
// applications: a simulated angle generator, a named beacon, a Constant
// Tone Extension (CTE) transmitter and a CTE receiver.
//
// Each application is a Role run by a Session over a Stack. The session
// enables the stack, lets the role configure it, then dispatches stack
// events to the role one at a time until the context is done. Handles
// the role creates (advertising sets, periodic syncs) are owned by the
// session and released when it ends.
//
// STATUS
//
// Angle estimation from IQ samples is not implemented. The receiver
// enables CTE sampling on the sync and logs the periodic reports it gets.
//
//
// SETUP
//
// The linux package drives a BLE 5.1 controller through the HCI user
// channel (Linux v3.14+). Once it has opened the device no other program
// may access it, so the device must be down first:
//
//     sudo hciconfig hci0 down  # or whatever hci device you want to use
//
// or let the linux package power the adapter off through BlueZ with the
// PowerOffBlueZ option. Programs that administer network devices must
// either be run as root, or be granted appropriate capabilities:
//
//     sudo setcap 'CAP_NET_ADMIN=+ep' <executable>
//
// The sim package provides an in-memory stack for hosts without a
// controller.
//
// USAGE
//
//     st := sim.New(sim.WithPeer(sim.Peer{Name: aoa.DefaultTarget}))
//     s := aoa.NewSession(st, aoa.NewReceiver(aoa.DefaultTarget))
//     log.Fatal(s.Run(ctx))
//
package aoa
