// Package sampling generates the sample positions used by the convolvers:
// the Hammersley low-discrepancy sequence, a counter-based jitter hash keyed
// on output texels, tangent frames around a normal, and GGX half vectors.
package sampling

import (
	"math/bits"

	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/mathutil"
)

// Point is a 2D sample in [0,1)².
type Point [2]float64

// Sequence is an immutable list of sample points.
type Sequence []Point

// RadicalInverse mirrors the 32 bits of i around the binary point
// (van der Corput sequence in base 2).
func RadicalInverse(i uint32) float64 {
	return float64(bits.Reverse32(i)) * 0x1p-32
}

// Hammersley returns the count-point Hammersley set: (i/count, RadicalInverse(i)).
// count must be a positive power of two.
func Hammersley(count int) (Sequence, error) {
	if !mathutil.IsPowerOfTwo(count) {
		return nil, fault.Invalid("sampling: hammersley count %d is not a power of two", count)
	}
	seq := make(Sequence, count)
	inv := 1 / float64(count)
	for i := range seq {
		seq[i] = Point{float64(i) * inv, RadicalInverse(uint32(i))}
	}
	return seq, nil
}
