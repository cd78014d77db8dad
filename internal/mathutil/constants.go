package mathutil

import "math"

const (
	TwoPi    = 2 * math.Pi
	HalfPi   = math.Pi / 2
	InvPi    = 1 / math.Pi
	InvTwoPi = 1 / (2 * math.Pi)
)

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for n > 0, and 0 otherwise.
func Log2(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
