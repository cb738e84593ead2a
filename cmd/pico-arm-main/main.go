//go:build tinygo

// cmd/pico-arm-main/main.go
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/servo"

	"armcontrol-go/bus"
	"armcontrol-go/drivers/as5600"
	"armcontrol-go/drivers/tca9548a"
	"armcontrol-go/services/control"
	"armcontrol-go/services/link"
	"armcontrol-go/types"
)

// Pico wiring for the 6-DOF arm.
const (
	uartTXPin = 0
	uartRXPin = 1
	uartBaud  = 115200

	i2cSDAPin = 4
	i2cSCLPin = 5
	i2cFreq   = 400_000

	estopPin = 22
	ledPin   = 25
)

// Servo PWM pulse range, microseconds, across the 0..180 logical sweep.
const (
	servoMinPulse = 500
	servoMaxPulse = 2500
)

// ---- uartPort: adapts uartx to link.Port ----

type uartPort struct{ u *uartx.UART }

func (p *uartPort) Readable() <-chan struct{} { return p.u.Readable() }
func (p *uartPort) RecvSome(buf []byte) int   { return p.u.TryRead(buf) }

// txRetryLimit bounds how long TryWrite pushes a frame's tail into a
// congested FIFO. At one millisecond per stalled attempt this is a
// 16ms ceiling before the frame is abandoned as a short write.
const txRetryLimit = 16

// TryWrite pushes as much of b as the FIFO will take within the retry
// budget. A zero or short return means congestion and the caller drops
// the frame; a wedged FIFO must never stall the link goroutine.
func (p *uartPort) TryWrite(b []byte) int {
	n := p.u.TryWrite(b)
	if n == 0 {
		return 0
	}
	for retries := 0; n < len(b) && retries < txRetryLimit; retries++ {
		m := p.u.TryWrite(b[n:])
		if m == 0 {
			select {
			case <-p.u.Writable():
			case <-time.After(time.Millisecond):
			}
			continue
		}
		n += m
	}
	return n
}

// ---- servoBank: adapts the PWM slices to control.ServoDriver ----

type servoBank struct{ byPin map[int]servo.Servo }

func (s *servoBank) Drive(pin int, deg float64) error {
	sv, ok := s.byPin[pin]
	if !ok {
		return errNoServo
	}
	span := float64(servoMaxPulse - servoMinPulse)
	us := servoMinPulse + int(deg/types.JointMaxAngle*span+0.5)
	sv.SetMicroseconds(int16(us))
	return nil
}

type bankError string

func (e bankError) Error() string { return string(e) }

const errNoServo = bankError("no servo on pin")

// newServoBank claims one PWM channel per configured pin. On the RP2040
// adjacent pins share a slice, so the bank allocates one Array per slice
// and adds both pins to it.
func newServoBank(cfg types.ArmConfig) (*servoBank, error) {
	slices := map[uint8]servo.Array{}
	bank := &servoBank{byPin: make(map[int]servo.Servo, types.NumJoints)}
	for _, jc := range cfg.Joints {
		pin := machine.Pin(jc.ServoPin)
		sn := pwmSliceFor(jc.ServoPin)
		arr, ok := slices[sn]
		if !ok {
			var err error
			arr, err = servo.NewArray(pwmForSlice(sn))
			if err != nil {
				return nil, err
			}
			slices[sn] = arr
		}
		sv, err := arr.Add(pin)
		if err != nil {
			return nil, err
		}
		bank.byPin[jc.ServoPin] = sv
	}
	return bank, nil
}

func pwmSliceFor(pin int) uint8 { return uint8(pin>>1) & 7 }

func pwmForSlice(n uint8) servo.PWM {
	switch n {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// ---- encoderBus: adapts the AS5600 behind the mux to control.Encoder ----

type encoderBus struct{ dev *as5600.Device }

func (e *encoderBus) ReadDegrees() (float64, error) {
	raw, err := e.dev.RawAngle()
	if err != nil {
		return 0, err
	}
	return as5600.Degrees(raw), nil
}

// ---- estopButton: active-low input with pull-up ----

type estopButton struct{ pin machine.Pin }

func (b *estopButton) Pressed() bool { return !b.pin.Get() }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] arm controller boot")

	cfg := types.DefaultConfig()
	ctx := context.Background()

	// UART0 carries the command link.
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: uartBaud,
		TX:       machine.Pin(uartTXPin),
		RX:       machine.Pin(uartRXPin),
	})

	// I2C0 carries the mux and every encoder behind it.
	sda := machine.Pin(i2cSDAPin)
	scl := machine.Pin(i2cSCLPin)
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	machine.I2C0.Configure(machine.I2CConfig{SDA: sda, SCL: scl, Frequency: i2cFreq})

	bank, err := newServoBank(cfg)
	if err != nil {
		println("[main] servo setup failed:", err.Error())
		return
	}

	estop := machine.Pin(estopPin)
	estop.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	mux := tca9548a.New(machine.I2C0)
	enc := as5600.New(machine.I2C0)

	println("[main] starting services")
	b := bus.NewBus(8)
	go link.Run(ctx, b.NewConnection("link"), &uartPort{u: u})
	go control.Run(ctx, b.NewConnection("control"), cfg, control.Deps{
		Servos: bank,
		Mux:    &mux,
		Enc:    &encoderBus{dev: &enc},
		Estop:  &estopButton{pin: estop},
	})

	// Heartbeat.
	led := machine.Pin(ledPin)
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		led.Set(!led.Get())
	}
}
