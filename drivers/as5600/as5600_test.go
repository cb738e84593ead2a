package as5600

import (
	"errors"
	"testing"
)

// fakeI2C answers register reads from a fixed map; it satisfies drivers.I2C.
type fakeI2C struct {
	regs map[byte][]byte
	fail error
	txs  int
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.txs++
	if f.fail != nil {
		return f.fail
	}
	if len(w) == 1 && len(r) > 0 {
		src, ok := f.regs[w[0]]
		if !ok {
			return errors.New("fake: unknown register")
		}
		copy(r, src)
	}
	return nil
}

func TestRawAngle(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regStatus:   {statusMagnetDetected},
		regRawAngle: {0x0F, 0xFF}, // full scale
	}}
	d := New(f)
	raw, err := d.RawAngle()
	if err != nil {
		t.Fatalf("RawAngle: %v", err)
	}
	if raw != 0x0FFF {
		t.Errorf("raw = %#x, want 0x0fff", raw)
	}
}

func TestRawAngle_MasksHighBits(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regStatus:   {statusMagnetDetected},
		regRawAngle: {0xF8, 0x01}, // junk in the top nibble
	}}
	d := New(f)
	raw, err := d.RawAngle()
	if err != nil {
		t.Fatalf("RawAngle: %v", err)
	}
	if raw != 0x0801 {
		t.Errorf("raw = %#x, want 0x0801", raw)
	}
}

func TestRawAngle_BusError(t *testing.T) {
	f := &fakeI2C{fail: errors.New("bus stuck")}
	d := New(f)
	if _, err := d.RawAngle(); err == nil {
		t.Fatal("expected bus error")
	}
}

func TestRawAngle_NoMagnet(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regStatus:   {statusMagnetLow},
		regRawAngle: {0x01, 0x23},
	}}
	d := New(f)
	if _, err := d.RawAngle(); err != ErrNoMagnet {
		t.Fatalf("err = %v, want ErrNoMagnet", err)
	}
}

func TestMagnetDetected(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regStatus: {statusMagnetDetected},
	}}
	d := New(f)
	ok, err := d.MagnetDetected()
	if err != nil || !ok {
		t.Fatalf("MagnetDetected = %v, %v", ok, err)
	}

	f.regs[regStatus] = []byte{statusMagnetLow}
	ok, err = d.MagnetDetected()
	if err != nil || ok {
		t.Fatalf("MagnetDetected = %v, %v; want false", ok, err)
	}
}

func TestDegrees(t *testing.T) {
	cases := []struct {
		raw  uint16
		want float64
	}{
		{0, 0},
		{1024, 90},
		{2048, 180},
		{3072, 270},
	}
	for _, c := range cases {
		if got := Degrees(c.raw); got != c.want {
			t.Errorf("Degrees(%d) = %v, want %v", c.raw, got, c.want)
		}
	}
}
