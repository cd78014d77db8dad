package raster

import "github.com/chewxy/math32"

// AddressMode selects how out-of-range texel coordinates are resolved.
type AddressMode int

const (
	Clamp AddressMode = iota // repeat the edge texel
	Wrap                     // tile the image
)

// SampleBilinear performs bilinear filtering at normalized (u, v), where
// (0, 0) is the top-left corner of texel (0, 0) and (1, 1) the bottom-right
// corner of the last texel. Accesses img.Pix directly for performance.
func SampleBilinear(img *HDRImage, u, v float32, modeU, modeV AddressMode) Color {
	w, h := img.Width, img.Height

	// -0.5 moves from texel corners to texel centers
	fx := u*float32(w) - 0.5
	fy := v*float32(h) - 0.5
	flx := math32.Floor(fx)
	fly := math32.Floor(fy)
	dx := fx - flx
	dy := fy - fly

	x0, x1 := resolve(int(flx), w, modeU)
	y0, y1 := resolve(int(fly), h, modeV)

	pix := img.Pix
	i00 := (y0*w + x0) * 4
	i10 := (y0*w + x1) * 4
	i01 := (y1*w + x0) * 4
	i11 := (y1*w + x1) * 4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var c Color
	for k := 0; k < 4; k++ {
		c[k] = pix[i00+k]*w00 + pix[i10+k]*w10 + pix[i01+k]*w01 + pix[i11+k]*w11
	}
	return c
}

// SampleNearest returns the texel containing (u, v).
func SampleNearest(img *HDRImage, u, v float32, modeU, modeV AddressMode) Color {
	x, _ := resolve(int(math32.Floor(u*float32(img.Width))), img.Width, modeU)
	y, _ := resolve(int(math32.Floor(v*float32(img.Height))), img.Height, modeV)
	return img.At(x, y)
}

// resolve maps the lower texel index i0 and its right/bottom neighbour into
// [0, n) according to mode.
func resolve(i0, n int, mode AddressMode) (int, int) {
	i1 := i0 + 1
	if mode == Wrap {
		i0 %= n
		if i0 < 0 {
			i0 += n
		}
		return i0, (i0 + 1) % n
	}
	return clampIndex(i0, n), clampIndex(i1, n)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
