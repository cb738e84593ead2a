// services/control/types.go
package control

import "time"

// Hardware capabilities the core calls through. Implementations live with
// the platform wiring (cmd/), not here; adaptors must not spawn goroutines
// or touch the bus. Every call below must return within a short fixed
// bound (a wedged bus or stalled peripheral surfaces as an error, never a
// stalled loop); timing out inside the adaptor is how that bound is kept.

// Clock abstracts the monotonic time source so every timer in the core is
// a timestamp comparison, host-testable without real hardware timers.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ServoDriver translates a pre-clamped logical angle into a hardware
// command for one PWM channel. It performs range translation only; the
// caller owns clamping and enable gating. A failed or timed-out write
// returns an error and is recorded as a per-joint fault.
type ServoDriver interface {
	Drive(pin int, deg float64) error
}

// Mux selects one encoder channel on the shared I²C bus. Exactly one
// channel is active at a time; selection is never reentrant. A select that
// cannot complete in bounded time returns an error.
type Mux interface {
	Select(ch uint8) error
}

// Encoder reads the absolute angle, in raw degrees on the 0..360 circle,
// of whichever device the mux currently exposes. A read that cannot
// complete in bounded time returns an error; the joint keeps its stale
// measurement.
type Encoder interface {
	ReadDegrees() (float64, error)
}

// EstopInput samples the physical emergency-stop switch level
// (true = pressed). Debouncing happens in the core against the Clock.
type EstopInput interface {
	Pressed() bool
}

// Deps bundles the capabilities the control service is constructed with.
// Clock may be nil; a wall-clock default is used.
type Deps struct {
	Servos ServoDriver
	Mux    Mux
	Enc    Encoder
	Estop  EstopInput
	Clock  Clock
}
