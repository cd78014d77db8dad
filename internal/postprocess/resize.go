package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales one tile of the preview sheet to w×h. Cross tiles carry
// transparent corners, so filtering runs on premultiplied color. Shrinking
// uses CatmullRom; enlarging the small rough levels uses nearest neighbor
// so their texels stay visible.
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	var scaler draw.Scaler = draw.CatmullRom
	if w > b.Dx() {
		scaler = draw.NearestNeighbor
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), premultiply(img), b, draw.Src, nil)
	return unpremultiply(dst)
}

func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		dst := out.Pix[out.PixOffset(b.Min.X, y):]
		for i := 0; i < b.Dx()*4; i += 4 {
			a := float64(src[i+3]) / 255
			for c := 0; c < 3; c++ {
				dst[i+c] = uint8(float64(src[i+c])*a + 0.5)
			}
			dst[i+3] = src[i+3]
		}
	}
	return out
}

// unpremultiply leaves color at zero where coverage is below one step.
func unpremultiply(img *image.RGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a > 1 {
			inv := 255 / float64(a)
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = clamp8(float64(img.Pix[i+c]) * inv)
			}
		}
		out.Pix[i+3] = a
	}
	return out
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
