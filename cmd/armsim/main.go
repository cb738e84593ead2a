//go:build !tinygo

// cmd/armsim/main.go
//
// armsim runs the controller core on the host with simulated hardware,
// speaking the wire protocol on stdin/stdout. Useful for driving the state
// machine from a terminal:
//
//	echo 'TYPE=CMD,CMD=SET_MODE,MODE=2' | go run ./cmd/armsim
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"armcontrol-go/bus"
	"armcontrol-go/services/control"
	"armcontrol-go/services/link"
	"armcontrol-go/types"
)

// ---------- stdio port ----------

// stdioPort adapts stdin/stdout to link.Port. A reader goroutine pumps
// stdin into a buffer; writes go straight out, a terminal is never
// congested.
type stdioPort struct {
	mu       sync.Mutex
	buf      []byte
	readable chan struct{}
}

func newStdioPort() *stdioPort {
	p := &stdioPort{readable: make(chan struct{}, 1)}
	go func() {
		chunk := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(chunk)
			if n > 0 {
				p.mu.Lock()
				p.buf = append(p.buf, chunk[:n]...)
				p.mu.Unlock()
				select {
				case p.readable <- struct{}{}:
				default:
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return p
}

func (p *stdioPort) Readable() <-chan struct{} { return p.readable }

func (p *stdioPort) RecvSome(buf []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(buf, p.buf)
	p.buf = p.buf[n:]
	return n
}

func (p *stdioPort) TryWrite(b []byte) int {
	n, err := os.Stdout.Write(b)
	if err != nil {
		return 0
	}
	return n
}

// ---------- simulated arm ----------

// simArm models six servos and six encoders with shared state: each
// encoder reads back whatever its servo was last driven to, so telemetry
// converges on the commanded pose. Only the control loop's goroutine
// touches it.
type simArm struct {
	cfg    types.ArmConfig
	angles map[int]float64 // servo pin -> logical degrees
}

func newSimArm(cfg types.ArmConfig) *simArm {
	a := &simArm{cfg: cfg, angles: make(map[int]float64, types.NumJoints)}
	for _, jc := range cfg.Joints {
		a.angles[jc.ServoPin] = 90
	}
	return a
}

func (a *simArm) Drive(pin int, deg float64) error {
	a.angles[pin] = deg
	return nil
}

// simMux remembers the selected channel so the encoder knows which joint
// it is reading.
type simMux struct {
	arm *simArm
	ch  uint8
}

func (m *simMux) Select(ch uint8) error {
	m.ch = ch
	return nil
}

// ReadDegrees inverts the calibration mapping of the joint on the selected
// channel, so the core's logical conversion lands back on the servo angle.
func (m *simMux) ReadDegrees() (float64, error) {
	for _, jc := range m.arm.cfg.Joints {
		if jc.MuxChannel != m.ch {
			continue
		}
		logical := m.arm.angles[jc.ServoPin]
		raw := jc.Calib.RefRaw + (logical-jc.Calib.RefOffset)*float64(jc.Calib.Direction)
		for raw < 0 {
			raw += 360
		}
		for raw >= 360 {
			raw -= 360
		}
		return raw, nil
	}
	return 0, fmt.Errorf("no joint on channel %d", m.ch)
}

type simEstop struct{}

func (simEstop) Pressed() bool { return false }

func main() {
	cfg := types.DefaultConfig()
	arm := newSimArm(cfg)
	mux := &simMux{arm: arm}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(16)
	go link.Run(ctx, b.NewConnection("link"), newStdioPort())
	go control.Run(ctx, b.NewConnection("control"), cfg, control.Deps{
		Servos: arm,
		Mux:    mux,
		Enc:    mux,
		Estop:  simEstop{},
	})

	fmt.Fprintln(os.Stderr, "[armsim] running, protocol on stdin/stdout")
	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "[armsim] stopped")
}
