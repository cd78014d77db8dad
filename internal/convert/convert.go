// Package convert resamples panoramic light sources into cube maps.
package convert

import (
	"log/slog"
	"math"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/raster"
)

// Converter turns equirectangular images and loose face sets into cubes.
// The zero value is ready to use.
type Converter struct {
	// Rotation is a yaw offset in radians. A positive value slides the
	// panorama towards decreasing azimuth.
	Rotation float64
	Workers  int
	Logger   *slog.Logger
}

// Equirect maps a unit direction to equirectangular texture coordinates.
// u follows azimuth around +Y starting at +X; v runs from 0 at the nadir to
// 1 at the zenith.
func Equirect(dir mathutil.Vec3, rotation float64) (u, v float64) {
	y := math.Max(-1, math.Min(1, dir[1]))
	u = (math.Atan2(dir[2], dir[0]) + rotation) * mathutil.InvTwoPi
	v = math.Asin(y)*mathutil.InvPi + 0.5
	return mathutil.WrapUnit(u), v
}

// Convert resamples src onto a new cube of the given face size. Rows of src
// are top-down, so image row 0 lies towards +Y.
func (c *Converter) Convert(src *raster.HDRImage, size int) (*cubemap.Cube, error) {
	if src == nil || src.Width <= 0 || src.Height <= 0 || len(src.Pix) < src.Width*src.Height*4 {
		return nil, fault.Invalid("convert: empty equirectangular source")
	}
	if err := cubemap.ValidateSize(size); err != nil {
		return nil, err
	}
	log := logging.OrNop(c.Logger)
	if src.Width != 2*src.Height {
		log.Warn("equirectangular source is not 2:1", "width", src.Width, "height", src.Height)
	}

	cube, err := cubemap.NewCube(size)
	if err != nil {
		return nil, err
	}
	rot := c.Rotation
	err = cubemap.NewRig(c.Workers).Capture(cube, func(_ cubemap.Face, _, _ int, dir mathutil.Vec3) raster.Color {
		u, v := Equirect(dir, rot)
		col := raster.SampleBilinear(src, float32(u), float32(1-v), raster.Wrap, raster.Clamp)
		col[3] = 1
		return col
	})
	if err != nil {
		return nil, err
	}
	log.Debug("equirect converted", "src", [2]int{src.Width, src.Height}, "size", size)
	return cube, nil
}

// FromFaces builds a cube from six square faces of equal size, given in
// canonical face order. The faces are copied when no resampling or rotation
// is needed, otherwise they are resampled through the rig.
func (c *Converter) FromFaces(faces [cubemap.FaceCount]*raster.HDRImage, size int) (*cubemap.Cube, error) {
	n := 0
	for i, img := range faces {
		if img == nil || img.Width <= 0 || img.Width != img.Height || len(img.Pix) < img.Width*img.Height*4 {
			return nil, fault.Invalid("convert: face %s is missing or not square", cubemap.Face(i))
		}
		if n == 0 {
			n = img.Width
		} else if img.Width != n {
			return nil, fault.Invalid("convert: face %s is %d wide, want %d", cubemap.Face(i), img.Width, n)
		}
	}
	if err := cubemap.ValidateSize(size); err != nil {
		return nil, err
	}

	src := &cubemap.Cube{Size: n}
	for i, img := range faces {
		src.Faces[i] = img
	}
	if n == size && c.Rotation == 0 {
		return src.Clone(), nil
	}

	cube, err := cubemap.NewCube(size)
	if err != nil {
		return nil, err
	}
	unrotate := mathutil.RotY(-c.Rotation)
	err = cubemap.NewRig(c.Workers).Capture(cube, func(_ cubemap.Face, _, _ int, dir mathutil.Vec3) raster.Color {
		col := src.Sample(unrotate.MulVec3(dir))
		col[3] = 1
		return col
	})
	if err != nil {
		return nil, err
	}
	logging.OrNop(c.Logger).Debug("face set resampled", "from", n, "to", size, "rotation", c.Rotation)
	return cube, nil
}
