// services/control/dispatch_test.go
package control

import (
	"strings"
	"testing"

	"armcontrol-go/errcode"
	"armcontrol-go/types"
)

func TestSetMode_Transitions(t *testing.T) {
	cases := []struct {
		name   string
		from   types.Mode
		to     types.Mode
		want   errcode.Code
		result types.Mode
	}{
		{"idle to move", types.ModeIdle, types.ModeMove, errcode.OK, types.ModeMove},
		{"idle to calibration", types.ModeIdle, types.ModeCalibration, errcode.OK, types.ModeCalibration},
		{"move to idle", types.ModeMove, types.ModeIdle, errcode.OK, types.ModeIdle},
		{"calibration to idle", types.ModeCalibration, types.ModeIdle, errcode.OK, types.ModeIdle},
		{"move to calibration rejected", types.ModeMove, types.ModeCalibration, errcode.InvalidTransition, types.ModeMove},
		{"calibration to move rejected", types.ModeCalibration, types.ModeMove, errcode.InvalidTransition, types.ModeCalibration},
		{"reserved rejected", types.ModeIdle, types.ModeReserved, errcode.UnsupportedMode, types.ModeIdle},
		{"self transition is a no-op", types.ModeMove, types.ModeMove, errcode.OK, types.ModeMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRig(allEnabledConfig())
			r.svc.mode = tc.from
			out := r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: tc.to})
			if out.Code != tc.want {
				t.Errorf("code = %v, want %v", out.Code, tc.want)
			}
			if r.svc.mode != tc.result {
				t.Errorf("mode = %v, want %v", r.svc.mode, tc.result)
			}
		})
	}
}

func TestSetMode_ReachCalibrationThroughIdle(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	if out := r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: types.ModeIdle}); !out.Accepted() {
		t.Fatalf("MOVE->IDLE rejected: %v", out.Code)
	}
	if out := r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: types.ModeCalibration}); !out.Accepted() {
		t.Fatalf("IDLE->CALIBRATION rejected: %v", out.Code)
	}
	if r.svc.mode != types.ModeCalibration {
		t.Errorf("mode = %v", r.svc.mode)
	}
}

func TestSetMode_LeavingMoveParksJoints(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{10, 20, 30, 40, 50, 60}})
	before := len(r.servo.calls)

	r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: types.ModeIdle})
	if len(r.servo.calls) != before+6 {
		t.Fatalf("drive calls = %d, want %d holds", len(r.servo.calls)-before, 6)
	}
	if last := r.servo.calls[len(r.servo.calls)-1]; last.deg != 60 {
		t.Errorf("joint 6 parked at %v, want 60", last.deg)
	}
}

func TestJointsToAngle_OutsideMoveRejected(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeIdle, types.ModeCalibration} {
		r := newTestRig(allEnabledConfig())
		r.svc.mode = mode
		out := r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{90, 90, 90, 90, 90, 90}})
		if out.Code != errcode.WrongMode {
			t.Errorf("mode %v: code = %v, want wrong_mode", mode, out.Code)
		}
		if len(r.servo.calls) != 0 {
			t.Errorf("mode %v: %d drive calls, want none", mode, len(r.servo.calls))
		}
	}
}

func TestJointsToAngle_ClampsAndWarns(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove

	out := r.svc.dispatch(types.Command{
		Name:   types.CmdJointsToAngle,
		Angles: [6]float64{-10, 200, 90, 0, 180, 45},
	})
	if !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if len(out.Clamps) != 2 {
		t.Fatalf("clamps = %+v, want 2", out.Clamps)
	}
	if out.Clamps[0].Joint != 1 || out.Clamps[0].Applied != 0 {
		t.Errorf("clamp[0] = %+v, want joint 1 at 0", out.Clamps[0])
	}
	if out.Clamps[1].Joint != 2 || out.Clamps[1].Applied != 180 {
		t.Errorf("clamp[1] = %+v, want joint 2 at 180", out.Clamps[1])
	}
	if len(r.servo.calls) != 6 {
		t.Fatalf("drive calls = %d", len(r.servo.calls))
	}
	if r.servo.calls[0].deg != 0 || r.servo.calls[1].deg != 180 {
		t.Errorf("clamped drives = %v, %v", r.servo.calls[0].deg, r.servo.calls[1].deg)
	}
}

func TestJointsToAngle_SkipsDisabledJoints(t *testing.T) {
	cfg := allEnabledConfig()
	cfg.Joints[0].Enabled = false
	cfg.Joints[5].Enabled = false
	r := newTestRig(cfg)
	r.svc.mode = types.ModeMove

	out := r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{10, 20, 30, 40, 50, 60}})
	if !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if len(r.servo.calls) != 4 {
		t.Fatalf("drive calls = %d, want 4", len(r.servo.calls))
	}
	for _, c := range r.servo.calls {
		if c.pin == cfg.Joints[0].ServoPin || c.pin == cfg.Joints[5].ServoPin {
			t.Errorf("disabled joint's pin %d was driven", c.pin)
		}
	}
}

func TestJointEn_DisableParksBeforeFlagFlips(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{10, 20, 30, 40, 50, 60}})
	before := len(r.servo.calls)

	out := r.svc.dispatch(types.Command{Name: types.CmdJointEn, Joint: 3, Enable: false})
	if !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if len(r.servo.calls) != before+1 {
		t.Fatalf("drive calls = %d, want one hold", len(r.servo.calls)-before)
	}
	if hold := r.servo.calls[before]; hold.deg != 30 {
		t.Errorf("held at %v, want last target 30", hold.deg)
	}
	if r.svc.reg.Joint(3).Enabled {
		t.Error("joint 3 still enabled")
	}

	// Once disabled, the joint never sees another command.
	r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{1, 2, 3, 4, 5, 6}})
	pin3 := r.svc.reg.Joint(3).ServoPin
	for _, c := range r.servo.calls[before+1:] {
		if c.pin == pin3 {
			t.Errorf("disabled joint driven to %v", c.deg)
		}
	}
}

func TestJointEn_Enable(t *testing.T) {
	cfg := types.DefaultConfig() // joints 1 and 6 ship disabled
	r := newTestRig(cfg)

	if r.svc.reg.Joint(1).Enabled {
		t.Fatal("joint 1 should start disabled")
	}
	out := r.svc.dispatch(types.Command{Name: types.CmdJointEn, Joint: 1, Enable: true})
	if !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if !r.svc.reg.Joint(1).Enabled {
		t.Error("joint 1 not enabled")
	}
	if len(r.servo.calls) != 0 {
		t.Errorf("enable issued %d drive calls, want none", len(r.servo.calls))
	}
}

func TestEstop_LatchesAndParks(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{10, 20, 30, 40, 50, 60}})
	before := len(r.servo.calls)

	out := r.svc.dispatch(types.Command{Name: types.CmdEstop})
	if !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if !r.svc.estopLatch {
		t.Error("latch not set")
	}
	if r.svc.mode != types.ModeIdle {
		t.Errorf("mode = %v, want IDLE", r.svc.mode)
	}
	if len(r.servo.calls) != before+6 {
		t.Errorf("hold calls = %d, want 6", len(r.servo.calls)-before)
	}
}

func TestEstop_LatchRejectsEverythingButRecovery(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.dispatch(types.Command{Name: types.CmdEstop})

	rejectedCmds := []types.Command{
		{Name: types.CmdSetMode, Mode: types.ModeMove},
		{Name: types.CmdSetMode, Mode: types.ModeCalibration},
		{Name: types.CmdJointsToAngle, Angles: [6]float64{90, 90, 90, 90, 90, 90}},
		{Name: types.CmdJointEn, Joint: 2, Enable: true},
		{Name: types.CmdCalibrateJoint, Joint: 2},
		{Name: types.CmdEstop},
	}
	for _, cmd := range rejectedCmds {
		if out := r.svc.dispatch(cmd); out.Code != errcode.EstopActive {
			t.Errorf("%s: code = %v, want estop_active", cmd.Name, out.Code)
		}
	}

	// SET_MODE 0 is the recovery transition and clears the latch.
	if out := r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: types.ModeIdle}); !out.Accepted() {
		t.Fatalf("recovery rejected: %v", out.Code)
	}
	if r.svc.estopLatch {
		t.Error("latch still set after recovery")
	}
	if out := r.svc.dispatch(types.Command{Name: types.CmdSetMode, Mode: types.ModeMove}); !out.Accepted() {
		t.Errorf("post-recovery SET_MODE rejected: %v", out.Code)
	}
}

func TestEstop_AbortsCalibrationInFlight(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeCalibration
	if out := r.svc.dispatch(types.Command{Name: types.CmdCalibrateJoint, Joint: 2}); !out.Accepted() {
		t.Fatalf("calibrate rejected: %v", out.Code)
	}
	if !r.svc.cal.busy() {
		t.Fatal("calibration not armed")
	}

	r.svc.dispatch(types.Command{Name: types.CmdEstop})
	if r.svc.cal.busy() {
		t.Error("calibration still in flight after estop")
	}
}

func TestCalibrateJoint_Guards(t *testing.T) {
	cfg := allEnabledConfig()
	cfg.Joints[3].Enabled = false
	r := newTestRig(cfg)

	if out := r.svc.dispatch(types.Command{Name: types.CmdCalibrateJoint, Joint: 2}); out.Code != errcode.WrongMode {
		t.Errorf("outside CALIBRATION: code = %v, want wrong_mode", out.Code)
	}

	r.svc.mode = types.ModeCalibration
	if out := r.svc.dispatch(types.Command{Name: types.CmdCalibrateJoint, Joint: 4}); out.Code != errcode.JointDisabled {
		t.Errorf("disabled joint: code = %v, want joint_disabled", out.Code)
	}
	if out := r.svc.dispatch(types.Command{Name: types.CmdCalibrateJoint, Joint: 2}); !out.Accepted() {
		t.Fatalf("rejected: %v", out.Code)
	}
	if out := r.svc.dispatch(types.Command{Name: types.CmdCalibrateJoint, Joint: 3}); out.Code != errcode.Busy {
		t.Errorf("second capture: code = %v, want busy", out.Code)
	}
}

func TestActuator_DriveFaultDoesNotFailBatch(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	r.servo.err = errHardware

	out := r.svc.dispatch(types.Command{Name: types.CmdJointsToAngle, Angles: [6]float64{10, 20, 30, 40, 50, 60}})
	if !out.Accepted() {
		t.Fatalf("batch rejected: %v", out.Code)
	}
	for i := 1; i <= 6; i++ {
		if !r.svc.reg.Joint(JointID(i)).Fault {
			t.Errorf("joint %d not faulted", i)
		}
	}
}

func TestHandleFrame_AckEchoesCommand(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.handleFrame(frameOf("TYPE=CMD,CMD=SET_MODE,MODE=2"))

	out := r.drain()
	if len(out) != 1 {
		t.Fatalf("frames = %d", len(out))
	}
	if got := string(out[0]); got != "TYPE=ACK,CMD=SET_MODE,MODE=2\n" {
		t.Errorf("ack = %q", got)
	}
}

func TestHandleFrame_RejectionCarriesCode(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.handleFrame(frameOf("TYPE=CMD,CMD=JOINTS_TO_ANGLE,JOINT_1_ANG=90,JOINT_2_ANG=90,JOINT_3_ANG=90,JOINT_4_ANG=90,JOINT_5_ANG=90,JOINT_6_ANG=90"))

	out := r.drain()
	if len(out) != 1 {
		t.Fatalf("frames = %d", len(out))
	}
	if got := string(out[0]); got != "TYPE=ACK,CMD=JOINTS_TO_ANGLE,ERR=wrong_mode\n" {
		t.Errorf("nack = %q", got)
	}
}

func TestHandleFrame_ParseErrorNacked(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.handleFrame(frameOf("TYPE=CMD,CMD=SET_MODE,MODE=banana"))

	out := r.drain()
	if len(out) != 1 {
		t.Fatalf("frames = %d", len(out))
	}
	if got := string(out[0]); !strings.Contains(got, "ERR=parse_error") {
		t.Errorf("nack = %q", got)
	}
}

func TestHandleFrame_ClampNoticesFollowAck(t *testing.T) {
	r := newTestRig(allEnabledConfig())
	r.svc.mode = types.ModeMove
	r.svc.handleFrame(frameOf("TYPE=CMD,CMD=JOINTS_TO_ANGLE,JOINT_1_ANG=-10,JOINT_2_ANG=90,JOINT_3_ANG=90,JOINT_4_ANG=90,JOINT_5_ANG=90,JOINT_6_ANG=90"))

	out := r.drain()
	if len(out) != 2 {
		t.Fatalf("frames = %d, want ack + clamp notice", len(out))
	}
	if !strings.HasPrefix(string(out[0]), "TYPE=ACK,CMD=JOINTS_TO_ANGLE") {
		t.Errorf("first frame = %q", out[0])
	}
	if got := string(out[1]); got != "TYPE=DATA,CMD=CLAMP,JOINT_ID=1,ANGLE=0.00\n" {
		t.Errorf("clamp notice = %q", got)
	}
}
