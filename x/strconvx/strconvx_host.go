//go:build !tinygo

package strconvx

import "strconv"

// Signature parity with strconv; delegate straight through on hosts.

func Itoa(i int) string          { return strconv.Itoa(i) }
func Atoi(s string) (int, error) { return strconv.Atoi(s) }

func ParseFloat(s string, bitSize int) (float64, error) { return strconv.ParseFloat(s, bitSize) }

func FormatFloat(f float64, fmt byte, prec, bitSize int) string {
	return strconv.FormatFloat(f, fmt, prec, bitSize)
}
