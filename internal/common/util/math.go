package util

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// Gcd returns the greatest common divisor of a and b. Both must be non-negative.
func Gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Lcm returns the least common multiple of two positive integers, or an error if it overflows an int64.
func Lcm(a, b int64) (int64, error) {
	if a <= 0 || b <= 0 {
		return 0, errors.Errorf("lcm of %d and %d: arguments must be positive", a, b)
	}
	hi, lo := bits.Mul64(uint64(a/Gcd(a, b)), uint64(b))
	if hi != 0 || lo > uint64(1<<63-1) {
		return 0, errors.Errorf("lcm of %d and %d overflows int64", a, b)
	}
	return int64(lo), nil
}

// LcmAll returns the least common multiple of all values.
func LcmAll(values ...int64) (int64, error) {
	if len(values) == 0 {
		return 0, errors.New("lcm of an empty list")
	}
	rv := values[0]
	for _, v := range values[1:] {
		l, err := Lcm(rv, v)
		if err != nil {
			return 0, err
		}
		rv = l
	}
	if rv <= 0 {
		return 0, errors.Errorf("lcm of %v: arguments must be positive", values)
	}
	return rv, nil
}

// FloorMod returns a - b*floor(a/b) for b > 0, which lies in [0, b) unlike math.Mod whose result takes
// the sign of a.
func FloorMod(a, b float64) float64 {
	m := a - b*math.Floor(a/b)
	if m < 0 || m >= b {
		return 0
	}
	return m
}
