// services/control/registry.go
package control

import (
	"armcontrol-go/types"
	"armcontrol-go/x/mathx"
)

// JointID numbers joints 1..NumJoints, matching the wire protocol.
type JointID int

// Joint is the registry record for one degree of freedom. The channel and
// pin are data, not indices; nothing else in the core knows the wiring.
type Joint struct {
	ID         JointID
	Label      string
	Enabled    bool
	ServoPin   int
	MuxChannel uint8
	Calib      types.JointCalibration

	// Target is the last commanded logical angle. Written only while the
	// joint is enabled and the controller is in MOVE (or by hold paths
	// re-asserting it).
	Target    float64
	HasTarget bool

	// Measured is the last good encoder reading in logical degrees. On
	// fault it stays stale rather than being overwritten with garbage.
	Measured    float64
	HasMeasured bool
	Fault       bool
}

// Logical maps a raw encoder angle (degrees, 0..360 circle) to the joint's
// logical angle using its calibration. The raw delta is taken as the
// shortest rotation so the mapping behaves across the 0/360 seam.
func (j *Joint) Logical(rawDeg float64) float64 {
	d := mathx.DeltaDeg(j.Calib.RefRaw, rawDeg)
	return d*float64(j.Calib.Direction) + j.Calib.RefOffset
}

// LogicalRange returns the joint's valid logical interval, derived from
// the calibrated raw travel limits. A joint without captured limits falls
// back to the full 0..180 sweep.
func (j *Joint) LogicalRange() (lo, hi float64) {
	c := j.Calib
	if c.MinRaw == c.MaxRaw {
		return types.JointMinAngle, types.JointMaxAngle
	}
	lo, hi = j.Logical(c.MinRaw), j.Logical(c.MaxRaw)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Registry holds per-joint state for the whole arm. It is the single
// source of truth for both dispatch and telemetry, and is only ever
// touched from the control loop.
type Registry struct {
	joints [types.NumJoints]Joint
}

func NewRegistry(cfg types.ArmConfig) *Registry {
	r := &Registry{}
	for i := range r.joints {
		jc := cfg.Joints[i]
		r.joints[i] = Joint{
			ID:         JointID(i + 1),
			Label:      jc.Label,
			Enabled:    jc.Enabled,
			ServoPin:   jc.ServoPin,
			MuxChannel: jc.MuxChannel,
			Calib:      jc.Calib,
		}
	}
	return r
}

// Joint returns the record for id (1..NumJoints). Panics on a bad id;
// callers validate at the protocol boundary.
func (r *Registry) Joint(id JointID) *Joint {
	return &r.joints[int(id)-1]
}

// Each calls fn for every joint in id order.
func (r *Registry) Each(fn func(*Joint)) {
	for i := range r.joints {
		fn(&r.joints[i])
	}
}

// Snapshot copies the telemetry-facing view of all joints.
func (r *Registry) Snapshot() [types.NumJoints]types.JointSample {
	var out [types.NumJoints]types.JointSample
	for i := range r.joints {
		out[i] = types.JointSample{
			Angle: r.joints[i].Measured,
			Fault: r.joints[i].Fault,
		}
	}
	return out
}

// Reconfigure applies a new configuration to wiring, enables and
// calibration, preserving measured state and targets.
func (r *Registry) Reconfigure(cfg types.ArmConfig) {
	for i := range r.joints {
		jc := cfg.Joints[i]
		j := &r.joints[i]
		j.Label = jc.Label
		j.Enabled = jc.Enabled
		j.ServoPin = jc.ServoPin
		j.MuxChannel = jc.MuxChannel
		j.Calib = jc.Calib
	}
}
