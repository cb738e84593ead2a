// Package as5600 provides a driver for the AS5600 12-bit magnetic rotary
// encoder. The hot path is RawAngle(), a single two-byte register read;
// Degrees() converts counts to degrees on the 0..360 circle.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
package as5600

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address (fixed on the part).
const Address = 0x36

// Registers.
const (
	regStatus   = 0x0B
	regRawAngle = 0x0C
	regAngle    = 0x0E
	regAGC      = 0x1A
)

// Status bits.
const (
	statusMagnetHigh     = 0x08 // MH: magnet too strong
	statusMagnetLow      = 0x10 // ML: magnet too weak
	statusMagnetDetected = 0x20 // MD
)

// Full scale of the angle registers.
const Counts = 4096

// ErrNoMagnet is returned by RawAngle when the status register reports no
// magnet in range; the angle registers are meaningless then.
var ErrNoMagnet = errors.New("as5600: no magnet detected")

// Device wraps an I2C connection to an AS5600 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	buf [2]byte // reuse buffer to avoid allocations
}

// New creates a new AS5600 connection. The I2C bus must already be
// configured. Only the object is created; the device is not touched.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Status reads and returns the status register.
func (d *Device) Status() (byte, error) {
	data := d.buf[:1]
	if err := d.bus.Tx(d.Address, []byte{regStatus}, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// MagnetDetected reports whether a magnet is in range of the sensor.
func (d *Device) MagnetDetected() (bool, error) {
	st, err := d.Status()
	if err != nil {
		return false, err
	}
	return st&statusMagnetDetected != 0, nil
}

// RawAngle reads the unfiltered 12-bit angle (0..4095). The magnet status
// is checked first and ErrNoMagnet returned when the reading would be
// meaningless.
func (d *Device) RawAngle() (uint16, error) {
	st, err := d.Status()
	if err != nil {
		return 0, err
	}
	if st&statusMagnetDetected == 0 {
		return 0, ErrNoMagnet
	}
	data := d.buf[:2]
	if err := d.bus.Tx(d.Address, []byte{regRawAngle}, data); err != nil {
		return 0, err
	}
	raw := (uint16(data[0])<<8 | uint16(data[1])) & 0x0FFF
	return raw, nil
}

// Angle reads the filtered, scaled 12-bit angle register.
func (d *Device) Angle() (uint16, error) {
	data := d.buf[:2]
	if err := d.bus.Tx(d.Address, []byte{regAngle}, data); err != nil {
		return 0, err
	}
	return (uint16(data[0])<<8 | uint16(data[1])) & 0x0FFF, nil
}

// AGC reads the automatic gain control value, useful when checking magnet
// placement during commissioning.
func (d *Device) AGC() (byte, error) {
	data := d.buf[:1]
	if err := d.bus.Tx(d.Address, []byte{regAGC}, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Degrees converts raw counts to degrees in [0, 360).
func Degrees(raw uint16) float64 {
	return float64(raw&0x0FFF) * 360.0 / Counts
}
