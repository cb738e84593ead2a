// Package tca9548a provides a driver for the TCA9548A 8-channel I²C
// multiplexer. The device holds exactly one active downstream channel at a
// time; after switching, give the bus a settle delay before talking to the
// selected device.
package tca9548a

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address (A0..A2 low).
const Address = 0x70

// Channels on the part.
const NumChannels = 8

var ErrBadChannel = errors.New("tca9548a: channel out of range")

// Device wraps an I2C connection to a TCA9548A.
type Device struct {
	bus     drivers.I2C
	Address uint16

	active int8 // -1 when unknown or disabled
}

// New creates a new TCA9548A connection. The I2C bus must already be
// configured. Only the object is created; the device is not touched.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address, active: -1}
}

// Select enables exactly one downstream channel. Re-selecting the current
// channel is a no-op that skips the bus transaction.
func (d *Device) Select(ch uint8) error {
	if ch >= NumChannels {
		return ErrBadChannel
	}
	if d.active == int8(ch) {
		return nil
	}
	if err := d.bus.Tx(d.Address, []byte{1 << ch}, nil); err != nil {
		d.active = -1
		return err
	}
	d.active = int8(ch)
	return nil
}

// Disable disconnects all downstream channels.
func (d *Device) Disable() error {
	if err := d.bus.Tx(d.Address, []byte{0}, nil); err != nil {
		d.active = -1
		return err
	}
	d.active = -1
	return nil
}

// Active returns the currently selected channel, or -1 if none is known.
func (d *Device) Active() int { return int(d.active) }
