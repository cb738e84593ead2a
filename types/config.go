package types

// Arm configuration. Supplied at construction and on topic "config/arm".

// JointCalibration maps raw encoder degrees to logical joint degrees:
//
//	logical = (raw - ref_raw) * direction + ref_offset
//
// with the raw delta taken as the shortest rotation on the 0..360 circle.
type JointCalibration struct {
	RefRaw    float64 `json:"ref_raw"`    // raw degrees at the reference pose
	RefOffset float64 `json:"ref_offset"` // logical degrees the reference pose reads as
	Direction int     `json:"direction"`  // +1 or -1
	MinRaw    float64 `json:"min_raw"`
	MaxRaw    float64 `json:"max_raw"`
}

// JointConfig describes one joint's wiring and calibration.
// A disabled joint stays wired and reported; disabled is data, not absence.
type JointConfig struct {
	Label      string           `json:"label"`
	Enabled    bool             `json:"enabled"`
	ServoPin   int              `json:"servo_pin"`
	MuxChannel uint8            `json:"mux_channel"`
	Calib      JointCalibration `json:"calib"`
}

// ArmConfig is the immutable configuration the core is constructed with.
type ArmConfig struct {
	Joints [NumJoints]JointConfig `json:"joints"`

	TelemetryIntervalMS   int `json:"telemetry_interval_ms,omitempty"`
	EncoderScanIntervalMS int `json:"encoder_scan_interval_ms,omitempty"`
	MuxSettleMS           int `json:"mux_settle_ms,omitempty"`
	DebounceMS            int `json:"debounce_ms,omitempty"`
	ChannelsPerScan       int `json:"channels_per_scan,omitempty"`
}

// Normalize fills unset timings with defaults. Returns the receiver for
// chaining.
func (c ArmConfig) Normalize() ArmConfig {
	if c.TelemetryIntervalMS <= 0 {
		c.TelemetryIntervalMS = 100
	}
	if c.EncoderScanIntervalMS <= 0 {
		c.EncoderScanIntervalMS = 50
	}
	if c.MuxSettleMS <= 0 {
		c.MuxSettleMS = 10
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = 30
	}
	if c.ChannelsPerScan <= 0 {
		c.ChannelsPerScan = 2
	}
	for i := range c.Joints {
		if c.Joints[i].Calib.Direction == 0 {
			c.Joints[i].Calib.Direction = 1
		}
	}
	return c
}

// DefaultConfig returns the deployment configuration of the reference arm:
// servo pins 2..7, mux channels 0..5, joints 1 and 6 wired but disabled.
func DefaultConfig() ArmConfig {
	cfg := ArmConfig{
		Joints: [NumJoints]JointConfig{
			{Label: "Joint 1", Enabled: false, ServoPin: 2, MuxChannel: 0,
				Calib: JointCalibration{Direction: 1, MinRaw: 0, MaxRaw: 90}},
			{Label: "Joint 2 shoulder", Enabled: true, ServoPin: 3, MuxChannel: 1,
				Calib: JointCalibration{RefRaw: 305, RefOffset: 90, Direction: 1, MinRaw: 256, MaxRaw: 9.2}},
			{Label: "Joint 3", Enabled: true, ServoPin: 4, MuxChannel: 2,
				Calib: JointCalibration{RefRaw: 203.5, Direction: 1, MinRaw: 116, MaxRaw: 241}},
			{Label: "Joint 4", Enabled: true, ServoPin: 5, MuxChannel: 3,
				Calib: JointCalibration{RefRaw: 264.3, Direction: -1, MinRaw: 356, MaxRaw: 175}},
			{Label: "Joint 5", Enabled: true, ServoPin: 6, MuxChannel: 4,
				Calib: JointCalibration{RefRaw: 83.2, Direction: 1, MinRaw: 12.8, MaxRaw: 177}},
			{Label: "Joint 6", Enabled: false, ServoPin: 7, MuxChannel: 5,
				Calib: JointCalibration{Direction: 1, MinRaw: 0, MaxRaw: 180}},
		},
	}
	return cfg.Normalize()
}
