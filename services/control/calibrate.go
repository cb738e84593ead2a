// services/control/calibrate.go
package control

import "time"

// calibrator runs the single-joint reference capture: select the joint's
// mux channel, wait out the settle delay, read the encoder once, and store
// the raw angle as the joint's reference. The sequence spreads across loop
// ticks like a scan and checks the estop latch between steps via abort.
type calibrator struct {
	mux    Mux
	enc    Encoder
	settle time.Duration

	active      bool
	joint       JointID
	selected    bool
	settleUntil time.Time
}

// calResult reports a finished (or failed) calibration to the loop.
type calResult struct {
	Joint  JointID
	RefRaw float64
	Fault  bool
}

func newCalibrator(mux Mux, enc Encoder, settle time.Duration) *calibrator {
	return &calibrator{mux: mux, enc: enc, settle: settle}
}

func (c *calibrator) busy() bool { return c.active }

// begin arms the sequence for one joint. Caller has already validated mode
// and enable state.
func (c *calibrator) begin(id JointID) {
	c.active = true
	c.joint = id
	c.selected = false
}

// abort discards the in-flight sequence, leaving fault flags untouched and
// partial results dropped.
func (c *calibrator) abort() {
	c.active = false
	c.selected = false
}

// step advances the sequence one bounded unit. done is false until the
// sequence finishes; on completion res carries either the captured
// reference or a fault.
func (c *calibrator) step(now time.Time, reg *Registry) (done bool, res calResult) {
	if !c.active {
		return false, res
	}
	j := reg.Joint(c.joint)

	if !c.selected {
		if err := c.mux.Select(j.MuxChannel); err != nil {
			c.abort()
			return true, calResult{Joint: c.joint, Fault: true}
		}
		c.selected = true
		c.settleUntil = now.Add(c.settle)
		return false, res
	}
	if now.Before(c.settleUntil) {
		return false, res
	}

	raw, err := c.enc.ReadDegrees()
	c.abort()
	if err != nil {
		return true, calResult{Joint: c.joint, Fault: true}
	}
	// The current pose becomes the reference: it now reads as RefOffset.
	j.Calib.RefRaw = raw
	return true, calResult{Joint: c.joint, RefRaw: raw}
}
