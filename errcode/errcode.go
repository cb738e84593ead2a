package errcode

// Code is a stable, wire-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable). These are what command acknowledgements
// and telemetry carry, so renames are breaking.
const (
	OK Code = "ok"

	// Command rejections (no state change).
	WrongMode         Code = "wrong_mode"
	InvalidTransition Code = "invalid_transition"
	UnsupportedMode   Code = "unsupported_mode"
	EstopActive       Code = "estop_active"
	JointDisabled     Code = "joint_disabled"
	InvalidParams     Code = "invalid_params"
	Busy              Code = "busy"

	// Framing/parsing (recoverable, stream resyncs).
	ParseError   Code = "parse_error"
	FrameTooLong Code = "frame_too_long"

	// Per-joint hardware faults (non-fatal to the loop).
	EncoderFault           Code = "encoder_fault"
	ActuatorFault          Code = "actuator_fault"
	FaultDuringCalibration Code = "fault_during_calibration"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
