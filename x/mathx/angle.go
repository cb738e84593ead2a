package mathx

// WrapDeg normalises an angle to [0, 360).
func WrapDeg(a float64) float64 {
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a
}

// DeltaDeg returns the signed shortest rotation from a to b, in (-180, 180].
// Both inputs are treated as positions on a 0..360 circle.
func DeltaDeg(a, b float64) float64 {
	d := WrapDeg(b) - WrapDeg(a)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
