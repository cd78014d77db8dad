package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ibl-prefilter/internal/raster"
)

func testImage(w, h int) *raster.HDRImage {
	img := raster.NewHDRImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c raster.Color
			switch {
			case x < w/2:
				// constant runs
				c = raster.Color{0.25, 1, 4, 1}
			default:
				v := float32(x*7+y*13%11) * 0.37
				c = raster.Color{v, v * 0.5, 1000 * v, 1}
			}
			if x == 0 && y == 0 {
				c = raster.Color{0, 0, 0, 1}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func checkQuantized(t *testing.T, got, want *raster.HDRImage) {
	t.Helper()
	if got.Width != want.Width || got.Height != want.Height {
		t.Fatalf("size %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
	for y := 0; y < want.Height; y++ {
		for x := 0; x < want.Width; x++ {
			g, w := got.At(x, y), want.At(x, y)
			peak := math.Max(float64(w[0]), math.Max(float64(w[1]), float64(w[2])))
			for k := 0; k < 3; k++ {
				if d := math.Abs(float64(g[k] - w[k])); d > peak/128 {
					t.Fatalf("(%d,%d) = %v, want %v", x, y, g, w)
				}
			}
			if g[3] != 1 {
				t.Fatalf("(%d,%d) alpha %v", x, y, g[3])
			}
		}
	}
}

func TestHDRRoundTrip(t *testing.T) {
	for _, w := range []int{4, 8, 300} {
		src := testImage(w, 5)
		var buf bytes.Buffer
		if err := EncodeHDR(&buf, src); err != nil {
			t.Fatal(err)
		}
		got, err := DecodeHDR(&buf)
		if err != nil {
			t.Fatalf("width %d: %v", w, err)
		}
		checkQuantized(t, got, src)
	}
}

func TestHDRRunLengthShrinksFlatImage(t *testing.T) {
	img := raster.NewHDRImage(256, 4)
	img.Fill(raster.Color{2, 2, 2, 1})
	var buf bytes.Buffer
	if err := EncodeHDR(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() > 256*4*4/4 {
		t.Errorf("encoded %d bytes, runs were not compressed", buf.Len())
	}
}

func header(res string) []byte {
	return []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\nEXPOSURE=1.0\n\n" + res + "\n")
}

func TestDecodeAdaptiveRLE(t *testing.T) {
	data := header("-Y 1 +X 8")
	data = append(data, 2, 2, 0, 8)
	data = append(data, 128+8, 64)                 // R: run
	data = append(data, 8, 0, 1, 2, 3, 4, 5, 6, 7) // G: literal
	data = append(data, 128+4, 9, 4, 1, 2, 3, 4)   // B: run then literal
	data = append(data, 128+8, 129)                // E: run
	img, err := DecodeHDR(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	scale := math.Ldexp(1, 129-136)
	for x := 0; x < 8; x++ {
		b := 9.0
		if x >= 4 {
			b = float64(x - 3)
		}
		want := [3]float64{64.5 * scale, (float64(x) + 0.5) * scale, (b + 0.5) * scale}
		c := img.At(x, 0)
		for k := 0; k < 3; k++ {
			if math.Abs(float64(c[k])-want[k]) > 1e-6 {
				t.Errorf("x=%d = %v, want %v", x, c, want)
			}
		}
	}
}

func TestDecodeOldRLE(t *testing.T) {
	data := header("-Y 1 +X 10")
	data = append(data,
		10, 20, 30, 128, // A
		1, 1, 1, 5, // A ×5
		40, 40, 40, 129, // B
		1, 1, 1, 2, // B ×2
		0, 0, 0, 0,
	)
	img, err := DecodeHDR(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	a := decodeRGBE(10, 20, 30, 128)
	b := decodeRGBE(40, 40, 40, 129)
	want := []raster.Color{a, a, a, a, a, a, b, b, b, {0, 0, 0, 1}}
	for x, w := range want {
		if c := img.At(x, 0); c != w {
			t.Errorf("x=%d = %v, want %v", x, c, w)
		}
	}
}

func TestDecodeBottomUp(t *testing.T) {
	data := header("+Y 2 +X 1")
	data = append(data, 128, 0, 0, 129, 0, 128, 0, 129)
	img, err := DecodeHDR(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if c := img.At(0, 1); c[0] == 0 || c[1] != 0 {
		t.Errorf("bottom row %v, want red", c)
	}
	if c := img.At(0, 0); c[1] == 0 || c[0] != 0 {
		t.Errorf("top row %v, want green", c)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string][]byte{
		"no magic":         []byte("P6\n1 1\n255\n"),
		"bad format":       []byte("#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n\x00\x00\x00\x00"),
		"bad resolution":   []byte("#?RADIANCE\n\n+X 1 -Y 1\n"),
		"zero resolution":  header("-Y 0 +X 4"),
		"truncated":        append(header("-Y 2 +X 2"), 1, 2, 3, 4),
		"run overflow":     append(header("-Y 1 +X 8"), 2, 2, 0, 8, 128+9, 1),
		"width mismatch":   append(header("-Y 1 +X 8"), 2, 2, 0, 9),
		"leading repeat":   append(header("-Y 1 +X 2"), 1, 1, 1, 2),
		"header only":      []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n"),
		"overflowing size": append(header("-Y 4 +X 4611686018427387904"), 1, 2, 3, 4),
		"too many pixels":  append(header("-Y 16385 +X 16384"), 1, 2, 3, 4),
	}
	for name, data := range cases {
		if _, err := DecodeHDR(bytes.NewReader(data)); err == nil {
			t.Errorf("%s: decoded without error", name)
		} else if !strings.HasPrefix(err.Error(), "imageio: hdr") {
			t.Errorf("%s: error %q lacks package prefix", name, err)
		}
	}
}

func TestOldScanlineRejectsEmptyBuffer(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	if err := readOldScanline(br, nil); !errors.Is(err, errCorrupt) {
		t.Fatalf("err = %v, want errCorrupt", err)
	}
}

func TestEncodeRGBEEdgeCases(t *testing.T) {
	cases := []struct {
		in   raster.Color
		want [4]byte
	}{
		{raster.Color{0, 0, 0, 1}, [4]byte{}},
		{raster.Color{-1, -2, -3, 1}, [4]byte{}},
		{raster.Color{1, 0, 0, 1}, [4]byte{128, 0, 0, 129}},
		{raster.Color{float32(math.NaN()), 1, 1, 1}, [4]byte{0, 128, 128, 129}},
	}
	for _, tc := range cases {
		if got := encodeRGBE(tc.in); got != tc.want {
			t.Errorf("encodeRGBE(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFromImage(t *testing.T) {
	n := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	n.SetNRGBA(0, 0, color.NRGBA{255, 0, 128, 255})
	n.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 0})
	img := FromImage(n)
	if c := img.At(0, 0); c[0] != 1 || c[1] != 0 || c[3] != 1 || math.Abs(float64(c[2])-0.2195) > 1e-3 {
		t.Errorf("texel 0 = %v", c)
	}
	if c := img.At(1, 0); c[1] != 1 || c[3] != 0 {
		t.Errorf("texel 1 = %v", c)
	}

	g := image.NewGray16(image.Rect(5, 5, 6, 6))
	g.SetGray16(5, 5, color.Gray16{Y: 0xffff})
	if c := FromImage(g).At(0, 0); c != (raster.Color{1, 1, 1, 1}) {
		t.Errorf("gray16 texel = %v", c)
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "sky.png")
	n := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range n.Pix {
		n.Pix[i] = 255
	}
	f, err := os.Create(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, n); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 4 || img.Height != 2 || img.At(3, 1) != (raster.Color{1, 1, 1, 1}) {
		t.Errorf("png loaded as %dx%d %v", img.Width, img.Height, img.At(3, 1))
	}

	hdrPath := filepath.Join(dir, "out", "nested", "sky.hdr")
	src := testImage(16, 3)
	if err := SaveHDR(hdrPath, src); err != nil {
		t.Fatal(err)
	}
	back, err := Load(hdrPath)
	if err != nil {
		t.Fatal(err)
	}
	checkQuantized(t, back, src)

	if _, err := Load(filepath.Join(dir, "missing.hdr")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.HDR", "b.pic", "c.png", "d.JPG", "e.tga", "f.webp", "g.tiff"} {
		if !Supported(p) {
			t.Errorf("%s not supported", p)
		}
	}
	for _, p := range []string{"a.exr", "b.txt", "noext"} {
		if Supported(p) {
			t.Errorf("%s supported", p)
		}
	}
	if !IsHDR("x.Hdr") || IsHDR("x.png") {
		t.Error("IsHDR")
	}
}
