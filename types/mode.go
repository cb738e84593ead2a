package types

// ------------------------
// Operating modes
// ------------------------

// Mode is the controller operating mode. The numeric values are the wire
// values of SET_MODE and must not be reordered.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeCalibration
	ModeMove
	ModeReserved
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "IDLE"
	case ModeCalibration:
		return "CALIBRATION"
	case ModeMove:
		return "MOVE"
	case ModeReserved:
		return "RESERVED"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is one of the four wire modes.
func (m Mode) Valid() bool { return m <= ModeReserved }
