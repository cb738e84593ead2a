// services/control/safety.go
package control

import "time"

// debouncer filters the physical estop input over a fixed window, modelled
// as timestamp comparisons against the injected clock. The protocol ESTOP
// command bypasses this entirely; it is already edge-triggered.
type debouncer struct {
	in     EstopInput
	window time.Duration

	level      bool // debounced level
	lastRaw    bool
	lastChange time.Time
}

func newDebouncer(in EstopInput, window time.Duration, now time.Time) *debouncer {
	d := &debouncer{in: in, window: window, lastChange: now}
	if in != nil {
		d.lastRaw = in.Pressed()
		d.level = d.lastRaw
	}
	return d
}

// poll samples the input and returns true exactly once per debounced
// press edge (release edges settle the level but report nothing).
func (d *debouncer) poll(now time.Time) bool {
	if d.in == nil {
		return false
	}
	raw := d.in.Pressed()
	if raw != d.lastRaw {
		d.lastRaw = raw
		d.lastChange = now
	}
	if raw != d.level && now.Sub(d.lastChange) >= d.window {
		d.level = raw
		return d.level
	}
	return false
}

// Level returns the current debounced input level, reported in telemetry.
func (d *debouncer) Level() bool { return d.level }
