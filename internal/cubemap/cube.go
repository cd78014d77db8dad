package cubemap

import (
	"math"

	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/raster"
)

// MaxSize bounds the face size of a cube target.
const MaxSize = 4096

// Cube is a six-face render target. All faces are Size×Size and never
// resized.
type Cube struct {
	Size  int
	Faces [FaceCount]*raster.HDRImage
}

// ValidateSize rejects sizes that are not a power of two in [1, MaxSize].
func ValidateSize(size int) error {
	if !mathutil.IsPowerOfTwo(size) || size > MaxSize {
		return fault.Invalid("cubemap: size %d must be a power of two in [1, %d]", size, MaxSize)
	}
	return nil
}

// NewCube allocates a zeroed cube target.
func NewCube(size int) (*Cube, error) {
	if err := ValidateSize(size); err != nil {
		return nil, err
	}
	c := &Cube{Size: size}
	for f := range c.Faces {
		c.Faces[f] = raster.NewHDRImage(size, size)
	}
	return c, nil
}

// Fill sets every texel of every face to col.
func (c *Cube) Fill(col raster.Color) {
	for _, img := range c.Faces {
		img.Fill(col)
	}
}

// Texel returns the stored value of texel (x, y) on face f.
func (c *Cube) Texel(f Face, x, y int) raster.Color {
	return c.Faces[f].At(x, y)
}

// Sample looks up dir with bilinear filtering inside the face it hits.
// Filtering clamps at face edges and does not blend across seams.
func (c *Cube) Sample(dir mathutil.Vec3) raster.Color {
	f, u, v := Project(dir)
	return raster.SampleBilinear(c.Faces[f], float32(u), float32(v), raster.Clamp, raster.Clamp)
}

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	out := &Cube{Size: c.Size}
	for f, img := range c.Faces {
		out.Faces[f] = img.Clone()
	}
	return out
}

// Downsample returns the next mip level: each texel is the mean of a 2×2
// block. A 1×1 cube is returned unchanged.
func (c *Cube) Downsample() *Cube {
	if c.Size <= 1 {
		return c
	}
	half := c.Size / 2
	out := &Cube{Size: half}
	for f, src := range c.Faces {
		dst := raster.NewHDRImage(half, half)
		for y := 0; y < half; y++ {
			for x := 0; x < half; x++ {
				sum := src.At(2*x, 2*y).
					Add(src.At(2*x+1, 2*y)).
					Add(src.At(2*x, 2*y+1)).
					Add(src.At(2*x+1, 2*y+1))
				dst.Set(x, y, sum.Scale(0.25))
			}
		}
		out.Faces[f] = dst
	}
	return out
}

// MipChain returns c followed by successively halved copies down to 1×1.
func MipChain(c *Cube) []*Cube {
	chain := []*Cube{c}
	for cur := c; cur.Size > 1; {
		cur = cur.Downsample()
		chain = append(chain, cur)
	}
	return chain
}

// TexelSolidAngle approximates the solid angle covered by one texel of a
// cube of the given size (4π spread evenly over all texels).
func TexelSolidAngle(size int) float64 {
	return 4 * math.Pi / float64(FaceCount*size*size)
}
