// proto/codec.go
package proto

import (
	"strings"

	"armcontrol-go/errcode"
	"armcontrol-go/types"
	"armcontrol-go/x/strconvx"
)

// Wire format: one line per frame, comma-separated KEY=VALUE pairs, TYPE
// first. Commands arrive as TYPE=CMD; the controller answers with TYPE=ACK
// (exact echo for accepted commands, CMD+ERR for rejected ones) and emits
// TYPE=DATA frames for telemetry and notices.

const (
	typeCmd  = "CMD"
	typeAck  = "ACK"
	typeData = "DATA"
)

func perr(msg string) error {
	return &errcode.E{C: errcode.ParseError, Op: "proto.parse", Msg: msg}
}

// ParseCommand parses one command frame (without delimiter) into a Command.
// Unknown keys are ignored; missing required keys, bad numbers and unknown
// commands are parse errors.
func ParseCommand(frame []byte) (types.Command, error) {
	var cmd types.Command
	fields, err := splitFields(string(frame))
	if err != nil {
		return cmd, err
	}
	if fields["TYPE"] != typeCmd {
		return cmd, perr("not a command frame")
	}
	name, ok := fields["CMD"]
	if !ok {
		return cmd, perr("missing CMD field")
	}
	cmd.Raw = string(frame)

	switch types.CmdName(name) {
	case types.CmdSetMode:
		cmd.Name = types.CmdSetMode
		n, err := intField(fields, "MODE")
		if err != nil {
			return cmd, err
		}
		if n < 0 || !types.Mode(n).Valid() {
			return cmd, perr("MODE out of range")
		}
		cmd.Mode = types.Mode(n)

	case types.CmdJointsToAngle:
		cmd.Name = types.CmdJointsToAngle
		for i := 0; i < types.NumJoints; i++ {
			key := "JOINT_" + strconvx.Itoa(i+1) + "_ANG"
			v, ok := fields[key]
			if !ok {
				return cmd, perr("missing " + key)
			}
			f, err := strconvx.ParseFloat(v, 64)
			if err != nil {
				return cmd, perr("bad angle in " + key)
			}
			cmd.Angles[i] = f
		}

	case types.CmdJointEn:
		cmd.Name = types.CmdJointEn
		j, err := jointField(fields)
		if err != nil {
			return cmd, err
		}
		en, err := intField(fields, "EN")
		if err != nil {
			return cmd, err
		}
		if en != 0 && en != 1 {
			return cmd, perr("EN must be 0 or 1")
		}
		cmd.Joint = j
		cmd.Enable = en == 1

	case types.CmdEstop:
		cmd.Name = types.CmdEstop

	case types.CmdCalibrateJoint:
		cmd.Name = types.CmdCalibrateJoint
		j, err := jointField(fields)
		if err != nil {
			return cmd, err
		}
		cmd.Joint = j

	default:
		return cmd, perr("unknown command " + name)
	}
	return cmd, nil
}

func splitFields(s string) (map[string]string, error) {
	if s == "" {
		return nil, perr("empty frame")
	}
	out := make(map[string]string, 10)
	first := ""
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq <= 0 {
			return nil, perr("malformed pair " + pair)
		}
		if first == "" {
			first = pair[:eq]
		}
		out[pair[:eq]] = pair[eq+1:]
	}
	// TYPE leads the frame. The ack echo swaps it in place, so accepting
	// it anywhere else would garble the echo.
	if first != "TYPE" {
		return nil, perr("TYPE must lead the frame")
	}
	return out, nil
}

func intField(fields map[string]string, key string) (int, error) {
	v, ok := fields[key]
	if !ok {
		return 0, perr("missing " + key)
	}
	n, err := strconvx.Atoi(v)
	if err != nil {
		return 0, perr("bad integer in " + key)
	}
	return n, nil
}

func jointField(fields map[string]string) (int, error) {
	j, err := intField(fields, "JOINT_ID")
	if err != nil {
		return 0, err
	}
	if j < 1 || j > types.NumJoints {
		return 0, perr("JOINT_ID out of range")
	}
	return j, nil
}

// -----------------------------------------------------------------------------
// Serialisation
// -----------------------------------------------------------------------------

// EncodeAck renders the acknowledgement for an accepted command: the
// original frame echoed with TYPE swapped, per the two-lane protocol.
func EncodeAck(cmd types.Command) []byte {
	rest := strings.TrimPrefix(cmd.Raw, "TYPE="+typeCmd)
	return []byte("TYPE=" + typeAck + rest + "\n")
}

// EncodeNack renders the acknowledgement for a rejected command or frame.
// name may be empty when the frame never parsed far enough to know.
func EncodeNack(name types.CmdName, code errcode.Code) []byte {
	if name == "" {
		name = "UNKNOWN"
	}
	return []byte("TYPE=" + typeAck + ",CMD=" + string(name) + ",ERR=" + string(code) + "\n")
}

// EncodeTelemetry renders one telemetry frame. The result always fits in
// PacketMaxLen.
func EncodeTelemetry(f types.TelemetryFrame) []byte {
	b := make([]byte, 0, PacketMaxLen)
	b = append(b, "TYPE="+typeData+",CMD=JOINT_ANGLES,MODE="...)
	b = append(b, strconvx.Itoa(int(f.Mode))...)
	faults := 0
	for i, j := range f.Joints {
		b = append(b, ",ENCODER_"...)
		b = append(b, strconvx.Itoa(i+1)...)
		b = append(b, "_ANGLE="...)
		b = append(b, strconvx.FormatFloat(j.Angle, 'f', 2, 64)...)
		if j.Fault {
			faults |= 1 << i
		}
	}
	b = append(b, ",FAULTS="...)
	b = append(b, strconvx.Itoa(faults)...)
	b = append(b, ",BUTTON="...)
	b = append(b, strconvx.Itoa(boolToInt(f.Button))...)
	b = append(b, '\n')
	return b
}

// EncodeClampNotice reports a clamped joint target as a non-fatal notice.
func EncodeClampNotice(joint int, applied float64) []byte {
	return []byte("TYPE=" + typeData + ",CMD=CLAMP,JOINT_ID=" + strconvx.Itoa(joint) +
		",ANGLE=" + strconvx.FormatFloat(applied, 'f', 2, 64) + "\n")
}

// EncodeCalibrated reports completion of a single-joint calibration.
func EncodeCalibrated(joint int, refRaw float64) []byte {
	return []byte("TYPE=" + typeData + ",CMD=CALIBRATED,JOINT_ID=" + strconvx.Itoa(joint) +
		",REF_RAW=" + strconvx.FormatFloat(refRaw, 'f', 2, 64) + "\n")
}

// EncodeCalibrationFault reports a calibration sequence that died on the
// bus. The original command was already acknowledged as accepted, so this
// travels as a data notice.
func EncodeCalibrationFault(joint int) []byte {
	return []byte("TYPE=" + typeData + ",CMD=CALIBRATION_FAULT,JOINT_ID=" + strconvx.Itoa(joint) +
		",ERR=" + string(errcode.FaultDuringCalibration) + "\n")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
