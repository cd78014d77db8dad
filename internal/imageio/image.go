// Package imageio decodes light sources from disk into linear float images
// and writes derived cube faces back out.
//
// Radiance .hdr files are read and written by the RGBE codec in this
// package. Every other format goes through image.Decode with the PNG, JPEG,
// BMP, TIFF, WebP and TGA decoders registered; those 8- and 16-bit images
// are treated as sRGB-encoded and linearized on load.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"ibl-prefilter/internal/raster"
)

// Extensions lists the file extensions Load understands, lowercase.
var Extensions = []string{".hdr", ".pic", ".png", ".jpg", ".jpeg", ".tga", ".bmp", ".tif", ".tiff", ".webp"}

// Supported reports whether path has an extension Load understands.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsHDR reports whether path names a Radiance picture.
func IsHDR(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".hdr" || ext == ".pic"
}

// Load reads an image file into a linear float image.
func Load(path string) (*raster.HDRImage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: read %s: %w", path, err)
	}
	if IsHDR(path) {
		img, err := DecodeHDR(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("imageio: decode %s: %w", path, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("imageio: decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage linearizes an sRGB-encoded image. Alpha is kept as is.
func FromImage(src image.Image) *raster.HDRImage {
	b := src.Bounds()
	out := raster.NewHDRImage(b.Dx(), b.Dy())

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				i := s.PixOffset(b.Min.X+x, b.Min.Y+y)
				p := s.Pix[i : i+4 : i+4]
				out.Set(x, y, raster.Color{
					raster.SRGBToLinear(p[0]),
					raster.SRGBToLinear(p[1]),
					raster.SRGBToLinear(p[2]),
					float32(p[3]) / 255,
				})
			}
		}
	default:
		// Everything else goes through the 16-bit model so deep PNG and
		// TIFF sources keep their precision.
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				out.Set(x, y, raster.Color{
					raster.SRGB16ToLinear(c.R),
					raster.SRGB16ToLinear(c.G),
					raster.SRGB16ToLinear(c.B),
					float32(c.A) / 65535,
				})
			}
		}
	}
	return out
}

// SaveHDR writes img to path as a Radiance picture, creating parent
// directories as needed.
func SaveHDR(path string, img *raster.HDRImage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	if err := EncodeHDR(f, img); err != nil {
		f.Close()
		return fmt.Errorf("imageio: write %s: %w", path, err)
	}
	return f.Close()
}
