// services/control/dispatch.go
package control

import (
	"armcontrol-go/errcode"
	"armcontrol-go/types"
	"armcontrol-go/x/mathx"
)

// ClampNote records one joint whose requested angle was clamped; it is a
// warning, never a command failure.
type ClampNote struct {
	Joint   int
	Applied float64
}

// Outcome is the explicit result of dispatching one command.
type Outcome struct {
	Code   errcode.Code // errcode.OK when accepted
	Clamps []ClampNote
}

func accepted() Outcome                 { return Outcome{Code: errcode.OK} }
func rejected(c errcode.Code) Outcome   { return Outcome{Code: c} }
func (o Outcome) Accepted() bool        { return o.Code == errcode.OK }

// dispatch validates and executes one command against the current mode and
// latch state. Priority order: latch gate, ESTOP, then per-command rules.
func (s *service) dispatch(cmd types.Command) Outcome {
	// While latched, the only way forward is the explicit recovery
	// transition: SET_MODE 0 (IDLE), which clears the latch.
	if s.estopLatch {
		if cmd.Name == types.CmdSetMode && cmd.Mode == types.ModeIdle {
			s.estopLatch = false
			s.mode = types.ModeIdle
			return accepted()
		}
		return rejected(errcode.EstopActive)
	}

	switch cmd.Name {
	case types.CmdEstop:
		s.triggerEstop()
		return accepted()

	case types.CmdJointEn:
		return s.setJointEnabled(JointID(cmd.Joint), cmd.Enable)

	case types.CmdJointsToAngle:
		return s.jointsToAngle(cmd.Angles)

	case types.CmdCalibrateJoint:
		return s.calibrateJoint(JointID(cmd.Joint))

	case types.CmdSetMode:
		return s.setMode(cmd.Mode)
	}
	return rejected(errcode.InvalidParams)
}

// triggerEstop is the shared path for the protocol command and the
// physical switch: latch, park every enabled joint, abort any multi-step
// sequence in flight, and force IDLE. Fatal to the current operation, not
// to the process.
func (s *service) triggerEstop() {
	s.estopLatch = true
	s.act.HoldAll()
	s.scan.abort()
	s.cal.abort()
	s.mode = types.ModeIdle
}

func (s *service) setJointEnabled(id JointID, enable bool) Outcome {
	j := s.reg.Joint(id)
	if enable {
		j.Enabled = true
		return accepted()
	}
	// Park before the flag flips so a mid-move joint holds its last
	// commanded position instead of snapping.
	if j.Enabled {
		_ = s.act.Hold(id)
	}
	j.Enabled = false
	return accepted()
}

func (s *service) jointsToAngle(angles [types.NumJoints]float64) Outcome {
	if s.mode != types.ModeMove {
		return rejected(errcode.WrongMode)
	}
	out := accepted()
	for i, want := range angles {
		id := JointID(i + 1)
		if !s.reg.Joint(id).Enabled {
			continue // disabled joints are skipped, not an error
		}
		deg := mathx.Clamp(want, types.JointMinAngle, types.JointMaxAngle)
		if deg != want {
			out.Clamps = append(out.Clamps, ClampNote{Joint: int(id), Applied: deg})
		}
		// Per-joint validity is independent; an actuator fault here is
		// already recorded on the joint and must not fail the batch.
		_ = s.act.Drive(id, deg)
	}
	return out
}

func (s *service) calibrateJoint(id JointID) Outcome {
	if s.mode != types.ModeCalibration {
		return rejected(errcode.WrongMode)
	}
	if !s.reg.Joint(id).Enabled {
		return rejected(errcode.JointDisabled)
	}
	if s.cal.busy() {
		return rejected(errcode.Busy)
	}
	s.cal.begin(id)
	return accepted()
}

func (s *service) setMode(target types.Mode) Outcome {
	if target == s.mode {
		return accepted() // idempotent no-op
	}
	if target == types.ModeReserved {
		return rejected(errcode.UnsupportedMode)
	}
	switch s.mode {
	case types.ModeIdle:
		// IDLE -> CALIBRATION, IDLE -> MOVE
	case types.ModeMove:
		if target != types.ModeIdle {
			return rejected(errcode.InvalidTransition)
		}
		// Leaving MOVE must not strand a joint mid-command.
		s.act.HoldAll()
	case types.ModeCalibration:
		if target != types.ModeIdle {
			return rejected(errcode.InvalidTransition)
		}
		s.cal.abort()
	default:
		return rejected(errcode.InvalidTransition)
	}
	s.mode = target
	return accepted()
}
