package raster

import "github.com/chewxy/math32"

// Stats summarizes the texels of an image.
type Stats struct {
	Min       Color
	Max       Color
	Mean      Color
	MaxLum    float32
	NonFinite int // NaN or Inf texels
}

// ComputeStats scans every texel of img.
func ComputeStats(img *HDRImage) Stats {
	var s Stats
	n := img.Width * img.Height
	if n == 0 {
		return s
	}
	for k := 0; k < 4; k++ {
		s.Min[k] = math32.Inf(1)
		s.Max[k] = math32.Inf(-1)
	}

	var sum [4]float64
	for i := 0; i < len(img.Pix); i += 4 {
		c := Color{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
		finite := true
		for k := 0; k < 4; k++ {
			if math32.IsNaN(c[k]) || math32.IsInf(c[k], 0) {
				finite = false
				break
			}
		}
		if !finite {
			s.NonFinite++
			continue
		}
		for k := 0; k < 4; k++ {
			if c[k] < s.Min[k] {
				s.Min[k] = c[k]
			}
			if c[k] > s.Max[k] {
				s.Max[k] = c[k]
			}
			sum[k] += float64(c[k])
		}
		if l := c.Luminance(); l > s.MaxLum {
			s.MaxLum = l
		}
	}
	good := float64(n - s.NonFinite)
	if good > 0 {
		for k := 0; k < 4; k++ {
			s.Mean[k] = float32(sum[k] / good)
		}
	}
	return s
}
