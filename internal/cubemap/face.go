// Package cubemap holds six-face render targets and the capture rig that
// evaluates a full-screen kernel over every texel of every face.
//
// Faces follow the OpenGL cube map convention: texel (0, 0) is the top-left
// corner of a face as seen from the cube centre looking along the face axis.
package cubemap

import (
	"fmt"

	"ibl-prefilter/internal/mathutil"
)

// Face is one of the six axis-aligned cube faces.
type Face int

// Canonical face order.
const (
	PosX Face = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
	FaceCount = 6
)

// Orientation is the fixed view of one face. Right and Down span the face
// plane; a texel at face-plane coordinates (s, t) ∈ [-1,1]² looks along
// Look + s·Right + t·Down, which is a 90° field of view.
type Orientation struct {
	Look  mathutil.Vec3
	Up    mathutil.Vec3
	Right mathutil.Vec3
	Down  mathutil.Vec3
	Basis mathutil.Mat3 // columns Right, Down, Look
}

func orient(look, right, down mathutil.Vec3) Orientation {
	return Orientation{
		Look:  look,
		Up:    down.Neg(),
		Right: right,
		Down:  down,
		Basis: mathutil.Mat3FromColumns(right, down, look),
	}
}

// Orientations is indexed by Face.
var Orientations = [FaceCount]Orientation{
	PosX: orient(mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, -1}, mathutil.Vec3{0, -1, 0}),
	NegX: orient(mathutil.Vec3{-1, 0, 0}, mathutil.Vec3{0, 0, 1}, mathutil.Vec3{0, -1, 0}),
	PosY: orient(mathutil.Vec3{0, 1, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, 1}),
	NegY: orient(mathutil.Vec3{0, -1, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, -1}),
	PosZ: orient(mathutil.Vec3{0, 0, 1}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, -1, 0}),
	NegZ: orient(mathutil.Vec3{0, 0, -1}, mathutil.Vec3{-1, 0, 0}, mathutil.Vec3{0, -1, 0}),
}

var faceSuffixes = [FaceCount]string{"px", "nx", "py", "ny", "pz", "nz"}
var faceNames = [FaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

// Suffix returns the short file-name tag of the face ("px", "nx", ...).
func (f Face) Suffix() string {
	if f < 0 || f >= FaceCount {
		return fmt.Sprintf("face%d", int(f))
	}
	return faceSuffixes[f]
}

func (f Face) String() string {
	if f < 0 || f >= FaceCount {
		return fmt.Sprintf("Face(%d)", int(f))
	}
	return faceNames[f]
}

// ParseFace maps a suffix produced by Suffix back to its face.
func ParseFace(s string) (Face, bool) {
	for i, suf := range faceSuffixes {
		if s == suf {
			return Face(i), true
		}
	}
	return 0, false
}

// TexelDirection returns the normalized world direction through the centre
// of texel (x, y) of face f at the given face size.
func TexelDirection(f Face, x, y, size int) mathutil.Vec3 {
	s := (2*float64(x)+1)/float64(size) - 1
	t := (2*float64(y)+1)/float64(size) - 1
	return Orientations[f].Basis.MulVec3(mathutil.Vec3{s, t, 1}).Normalize()
}

// Project returns the face hit by dir and the normalized in-face coordinates
// (u, v) ∈ [0,1]². Ties between axes resolve to X, then Y.
func Project(dir mathutil.Vec3) (Face, float64, float64) {
	ax, ay, az := abs(dir[0]), abs(dir[1]), abs(dir[2])

	var f Face
	var ma float64
	switch {
	case ax >= ay && ax >= az:
		f, ma = PosX, ax
		if dir[0] < 0 {
			f = NegX
		}
	case ay >= az:
		f, ma = PosY, ay
		if dir[1] < 0 {
			f = NegY
		}
	default:
		f, ma = PosZ, az
		if dir[2] < 0 {
			f = NegZ
		}
	}
	if ma == 0 {
		return PosX, 0.5, 0.5
	}

	o := &Orientations[f]
	s := dir.Dot(o.Right) / ma
	t := dir.Dot(o.Down) / ma
	return f, (s + 1) * 0.5, (t + 1) * 0.5
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
