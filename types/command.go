package types

// ------------------------
// Commands
// ------------------------

// NumJoints is the fixed cardinality of the arm.
const NumJoints = 6

// Joint angle limits in logical degrees.
const (
	JointMinAngle = 0.0
	JointMaxAngle = 180.0
)

// CmdName identifies a command on the wire (the CMD= field).
type CmdName string

const (
	CmdSetMode        CmdName = "SET_MODE"
	CmdJointsToAngle  CmdName = "JOINTS_TO_ANGLE"
	CmdJointEn        CmdName = "JOINT_EN"
	CmdEstop          CmdName = "ESTOP"
	CmdCalibrateJoint CmdName = "CALIBRATE_JOINT"
)

// Command is one parsed command frame. It is immutable once parsed and
// lives for a single protocol cycle. Only the fields relevant to Name are
// meaningful.
type Command struct {
	Name CmdName

	Mode   Mode                  // SET_MODE
	Angles [NumJoints]float64    // JOINTS_TO_ANGLE, logical degrees
	Joint  int                   // JOINT_EN, CALIBRATE_JOINT (1..NumJoints)
	Enable bool                  // JOINT_EN

	// Raw is the original frame without the trailing newline, kept so the
	// acknowledgement can echo it exactly.
	Raw string
}
