// services/control/servo.go
package control

import (
	"armcontrol-go/errcode"
)

// actuator gates every hardware servo command through the registry's
// enabled flag, independently of the state machine's own checks. Angles
// arrive pre-clamped; the driver below only translates ranges.
type actuator struct {
	drv ServoDriver
	reg *Registry
}

// Drive commands one joint to a logical angle and records it as the
// joint's target. A disabled joint is refused outright; a driver failure
// marks the joint faulted without touching the recorded target.
func (a *actuator) Drive(id JointID, deg float64) error {
	j := a.reg.Joint(id)
	if !j.Enabled {
		return errcode.JointDisabled
	}
	if err := a.drv.Drive(j.ServoPin, deg); err != nil {
		j.Fault = true
		return &errcode.E{C: errcode.ActuatorFault, Op: "servo.drive", Err: err}
	}
	j.Target = deg
	j.HasTarget = true
	return nil
}

// Hold re-asserts the joint's last commanded angle, used on disable, estop
// and MOVE exit so the joint parks instead of snapping. A joint that was
// never commanded has nothing to hold.
func (a *actuator) Hold(id JointID) error {
	j := a.reg.Joint(id)
	if !j.HasTarget {
		return nil
	}
	if err := a.drv.Drive(j.ServoPin, j.Target); err != nil {
		j.Fault = true
		return &errcode.E{C: errcode.ActuatorFault, Op: "servo.hold", Err: err}
	}
	return nil
}

// HoldAll parks every enabled joint. Failures are per-joint and do not
// stop the sweep.
func (a *actuator) HoldAll() {
	a.reg.Each(func(j *Joint) {
		if j.Enabled {
			_ = a.Hold(j.ID)
		}
	})
}
