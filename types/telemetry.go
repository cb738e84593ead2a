package types

// ------------------------
// Telemetry
// ------------------------

// JointSample is one joint's slot in a telemetry frame.
type JointSample struct {
	// Angle is the last good measured angle in logical degrees. When Fault
	// is set the value is stale, not garbage.
	Angle float64
	Fault bool
}

// TelemetryFrame is a snapshot of controller state, timestamped at
// emission. It is assembled by the control service and serialised by the
// protocol codec.
type TelemetryFrame struct {
	Mode   Mode
	Joints [NumJoints]JointSample
	Button bool // debounced estop input level
	TsMs   int64
}
