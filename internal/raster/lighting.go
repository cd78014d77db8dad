package raster

import (
	"image"

	"github.com/chewxy/math32"
)

// ToneMap holds the display transform used for LDR previews.
type ToneMap struct {
	Exposure float32
	InvGamma float32
}

// DefaultToneMap returns unit exposure and sRGB-like 2.2 gamma.
func DefaultToneMap() ToneMap {
	return ToneMap{
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
	}
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float32

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math32.Pow(float32(i)/255.0, 2.2)
	}
}

// SRGBToLinear decodes an 8-bit gamma-encoded channel.
func SRGBToLinear(b uint8) float32 {
	return srgbToLinear[b]
}

// SRGB16ToLinear decodes a 16-bit gamma-encoded channel.
func SRGB16ToLinear(v uint16) float32 {
	return math32.Pow(float32(v)/65535.0, 2.2)
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float32) float32 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// Encode tone maps a linear color to 8-bit display values.
func (tm ToneMap) Encode(c Color) (r, g, b uint8) {
	enc := func(v float32) uint8 {
		if v <= 0 {
			return 0
		}
		return clamp255(math32.Pow(ACESTonemap(v*tm.Exposure), tm.InvGamma) * 255)
	}
	return enc(c[0]), enc(c[1]), enc(c[2])
}

// ToNRGBA converts an HDR image into an LDR image. Alpha is copied
// linearly.
func (tm ToneMap) ToNRGBA(img *HDRImage) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := tm.Encode(img.At(x, y))
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = clamp255(img.Pix[img.Offset(x, y)+3] * 255)
		}
	}
	return out
}

func clamp255(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
