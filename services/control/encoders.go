// services/control/encoders.go
package control

import (
	"time"

	"armcontrol-go/types"
	"armcontrol-go/x/mathx"
)

// Readings mapping this far outside the joint's valid logical range are
// treated as encoder faults rather than written to the registry. The range
// itself comes from the joint's calibrated travel limits.
const logicalFaultMargin = 45.0

// scanner refreshes measured angles through the multiplexer, strictly one
// channel at a time. Each read is two steps spread across loop ticks:
// select the channel, then read once the settle deadline has passed. The
// settle wait is a deadline against the clock, never a blocking sleep.
type scanner struct {
	mux    Mux
	enc    Encoder
	settle time.Duration

	idx         int // next joint index (0-based) in round-robin order
	selected    bool
	settleUntil time.Time
}

func newScanner(mux Mux, enc Encoder, settle time.Duration) *scanner {
	return &scanner{mux: mux, enc: enc, settle: settle}
}

// abort discards the in-flight channel selection without touching any
// fault flags. The next step starts a fresh selection.
func (s *scanner) abort() {
	s.selected = false
}

// step performs one bounded unit of work and reports whether a read
// completed. A mux failure faults the joint and moves on; a bad or
// out-of-range reading faults the joint and leaves its measured angle
// stale.
func (s *scanner) step(now time.Time, reg *Registry) bool {
	if s.mux == nil || s.enc == nil {
		return false
	}
	j := reg.Joint(JointID(s.idx + 1))

	if !s.selected {
		if err := s.mux.Select(j.MuxChannel); err != nil {
			j.Fault = true
			s.advance()
			return true
		}
		s.selected = true
		s.settleUntil = now.Add(s.settle)
		return false
	}
	if now.Before(s.settleUntil) {
		return false
	}

	raw, err := s.enc.ReadDegrees()
	s.selected = false
	s.advance()
	if err != nil {
		j.Fault = true
		return true
	}
	logical := j.Logical(raw)
	lo, hi := j.LogicalRange()
	if !mathx.Between(logical, lo-logicalFaultMargin, hi+logicalFaultMargin) {
		j.Fault = true
		return true
	}
	j.Measured = logical
	j.HasMeasured = true
	j.Fault = false
	return true
}

func (s *scanner) advance() {
	s.idx = (s.idx + 1) % types.NumJoints
}
