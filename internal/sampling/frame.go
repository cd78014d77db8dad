package sampling

import (
	"math"

	"ibl-prefilter/internal/mathutil"
)

// Frame is an orthonormal basis with Normal as its z axis.
type Frame struct {
	Right  mathutil.Vec3
	Up     mathutil.Vec3
	Normal mathutil.Vec3
}

// NewFrame builds a tangent frame around a unit normal. The helper axis is
// +Y unless the normal leans more towards Y than X, in which case +X is used;
// this keeps up × normal away from zero for every unit normal.
func NewFrame(normal mathutil.Vec3) Frame {
	up := mathutil.UnitX
	if math.Abs(normal[1]) < math.Abs(normal[0]) {
		up = mathutil.UnitY
	}
	right := up.Cross(normal).Normalize()
	up = normal.Cross(right)
	return Frame{Right: right, Up: up, Normal: normal}
}

// ToWorld maps tangent-space v (z along the normal) into world space.
func (f Frame) ToWorld(v mathutil.Vec3) mathutil.Vec3 {
	return mathutil.Mat3FromColumns(f.Right, f.Up, f.Normal).MulVec3(v)
}

// ToLocal is the inverse of ToWorld.
func (f Frame) ToLocal(v mathutil.Vec3) mathutil.Vec3 {
	return mathutil.Vec3{v.Dot(f.Right), v.Dot(f.Up), v.Dot(f.Normal)}
}

// Spherical returns the tangent-space direction for polar angle theta
// (from the normal) and azimuth phi.
func Spherical(theta, phi float64) mathutil.Vec3 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return mathutil.Vec3{st * cp, st * sp, ct}
}
