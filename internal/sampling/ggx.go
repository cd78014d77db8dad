package sampling

import (
	"math"

	"ibl-prefilter/internal/mathutil"
)

// ImportanceSampleGGX maps p to a tangent-space half vector distributed
// according to the GGX normal distribution with alpha = roughness².
func ImportanceSampleGGX(p Point, roughness float64) mathutil.Vec3 {
	a := roughness * roughness
	phi := mathutil.TwoPi * p[0]
	cosTheta := math.Sqrt((1 - p[1]) / (1 + (a*a-1)*p[1]))
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	sp, cp := math.Sincos(phi)
	return mathutil.Vec3{sinTheta * cp, sinTheta * sp, cosTheta}
}

// DistributionGGX evaluates the GGX normal distribution D(h) for
// cosTheta = n·h.
func DistributionGGX(cosTheta, roughness float64) float64 {
	a := roughness * roughness
	a2 := a * a
	d := cosTheta*cosTheta*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}
