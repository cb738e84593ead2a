//go:build tinygo

package strconvx

// Minimal, allocation-aware helpers with identical signatures to the host
// variant. ParseFloat/FormatFloat are plain decimal and not IEEE-perfect;
// good enough for angle fields on the wire.

type parseError struct{}

func (parseError) Error() string { return "invalid syntax" }

func Itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	u := uint64(i)
	if neg {
		u = uint64(-i)
	}
	var buf [20]byte
	p := len(buf)
	for u > 0 {
		p--
		buf[p] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}

func Atoi(s string) (int, error) {
	if len(s) == 0 {
		return 0, parseError{}
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i++
	}
	if i == len(s) {
		return 0, parseError{}
	}
	n := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, parseError{}
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func ParseFloat(s string, bitSize int) (float64, error) {
	if len(s) == 0 {
		return 0, parseError{}
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i++
	}
	if i == len(s) {
		return 0, parseError{}
	}
	var whole float64
	seen := false
	for ; i < len(s) && s[i] != '.'; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, parseError{}
		}
		whole = whole*10 + float64(c-'0')
		seen = true
	}
	var frac, div float64 = 0, 1
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s); i++ {
			c := s[i]
			if c < '0' || c > '9' {
				return 0, parseError{}
			}
			frac = frac*10 + float64(c-'0')
			div *= 10
			seen = true
		}
	}
	if !seen {
		return 0, parseError{}
	}
	v := whole + frac/div
	if neg {
		v = -v
	}
	return v, nil
}

// FormatFloat supports fmt 'f' with a non-negative precision only.
func FormatFloat(f float64, fmt byte, prec, bitSize int) string {
	if prec < 0 {
		prec = 2
	}
	neg := f < 0
	if neg {
		f = -f
	}
	scale := 1.0
	for i := 0; i < prec; i++ {
		scale *= 10
	}
	scaled := uint64(f*scale + 0.5)
	whole := scaled
	var fracPart uint64
	if prec > 0 {
		div := uint64(scale)
		whole = scaled / div
		fracPart = scaled % div
	}
	out := Itoa(int(whole))
	if prec > 0 {
		fs := Itoa(int(fracPart))
		for len(fs) < prec {
			fs = "0" + fs
		}
		out += "." + fs
	}
	if neg {
		out = "-" + out
	}
	return out
}
