// services/control/fakes_test.go
package control

import (
	"errors"
	"time"

	"armcontrol-go/bus"
	"armcontrol-go/proto"
	"armcontrol-go/types"
)

// All fakes below are driven synchronously from the test goroutine via
// direct tick/step calls, so none of them need locking.

type driveCall struct {
	pin int
	deg float64
}

type fakeServo struct {
	calls []driveCall
	err   error
}

func (f *fakeServo) Drive(pin int, deg float64) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, driveCall{pin: pin, deg: deg})
	return nil
}

type fakeMux struct {
	selected []uint8
	err      error
}

func (f *fakeMux) Select(ch uint8) error {
	if f.err != nil {
		return f.err
	}
	f.selected = append(f.selected, ch)
	return nil
}

type fakeEncoder struct {
	deg float64
	err error
}

func (f *fakeEncoder) ReadDegrees() (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.deg, nil
}

type fakeEstop struct{ pressed bool }

func (f *fakeEstop) Pressed() bool { return f.pressed }

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

var errHardware = errors.New("bus timeout")

// testRig bundles a service wired to fakes plus a tx tap on the bus side.
type testRig struct {
	svc   *service
	servo *fakeServo
	mux   *fakeMux
	enc   *fakeEncoder
	estop *fakeEstop
	clk   *fakeClock
	tx    *bus.Subscription
	cmd   *bus.Subscription
}

func newTestRig(cfg types.ArmConfig) *testRig {
	b := bus.NewBus(64)
	servo := &fakeServo{}
	mux := &fakeMux{}
	enc := &fakeEncoder{deg: 90}
	estop := &fakeEstop{}
	clk := &fakeClock{now: time.Unix(1000, 0)}

	tap := b.NewConnection("tap")
	tx := tap.Subscribe(bus.T("link", "tx"))

	svc := newService(b.NewConnection("control"), cfg, Deps{
		Servos: servo,
		Mux:    mux,
		Enc:    enc,
		Estop:  estop,
		Clock:  clk,
	})
	return &testRig{
		svc: svc, servo: servo, mux: mux, enc: enc, estop: estop, clk: clk,
		tx:  tx,
		cmd: svc.conn.Subscribe(bus.T("arm", "cmd")),
	}
}

// allEnabledConfig returns the default wiring with every joint enabled and
// identity calibration, which keeps expected angles easy to read.
func allEnabledConfig() types.ArmConfig {
	cfg := types.DefaultConfig()
	for i := range cfg.Joints {
		cfg.Joints[i].Enabled = true
		cfg.Joints[i].Calib = types.JointCalibration{RefRaw: 0, RefOffset: 0, Direction: 1}
	}
	return cfg
}

// drain collects every frame currently queued on the tx tap.
func (r *testRig) drain() [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-r.tx.Channel():
			if b, ok := msg.Payload.([]byte); ok {
				out = append(out, b)
			}
		default:
			return out
		}
	}
}

// tick runs one scheduling cycle at the fake clock's current time.
func (r *testRig) tick() {
	r.svc.tick(r.clk.Now(), r.cmd)
}

func frameOf(s string) proto.Frame {
	return proto.Frame{Data: []byte(s)}
}
