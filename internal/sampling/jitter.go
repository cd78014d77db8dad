package sampling

// TexelKey identifies one output texel of a cube capture.
type TexelKey struct {
	Face int
	X, Y int
}

// mix32 is the "lowbias32" integer finalizer by Chris Wellons: a bijection
// on uint32 with good avalanche behaviour.
func mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Hash folds seed, texel and counter into one 32-bit value.
func Hash(seed uint32, key TexelKey, counter uint32) uint32 {
	h := mix32(seed ^ 0x9e3779b9)
	h = mix32(h ^ uint32(key.Face))
	h = mix32(h ^ uint32(key.X))
	h = mix32(h ^ uint32(key.Y))
	return mix32(h ^ counter)
}

// Jitter returns two independent values in [0,1) for sample index of the
// texel. The result depends only on its arguments, so a sample is jittered
// the same way however the sample range is split into passes.
func Jitter(seed uint32, key TexelKey, index uint32) (float64, float64) {
	h1 := Hash(seed, key, 2*index)
	h2 := Hash(seed, key, 2*index+1)
	return float64(h1) * 0x1p-32, float64(h2) * 0x1p-32
}
