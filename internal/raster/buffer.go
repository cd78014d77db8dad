package raster

// Color is a linear RGBA value. HDR: components are not clamped.
type Color [4]float32

func (c Color) Add(d Color) Color {
	return Color{c[0] + d[0], c[1] + d[1], c[2] + d[2], c[3] + d[3]}
}

func (c Color) Scale(s float32) Color {
	return Color{c[0] * s, c[1] * s, c[2] * s, c[3] * s}
}

// Lerp returns c + (d−c)·t.
func (c Color) Lerp(d Color, t float32) Color {
	return Color{
		c[0] + (d[0]-c[0])*t,
		c[1] + (d[1]-c[1])*t,
		c[2] + (d[2]-c[2])*t,
		c[3] + (d[3]-c[3])*t,
	}
}

// Luminance returns the Rec.709 luma of the RGB components.
func (c Color) Luminance() float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

// HDRImage holds linear float RGBA texels as a flat slice for cache locality.
// Rows are stored top-down.
type HDRImage struct {
	Width  int
	Height int
	Pix    []float32 // RGBA interleaved, len = W*H*4
}

// NewHDRImage allocates a zeroed image.
func NewHDRImage(w, h int) *HDRImage {
	return &HDRImage{
		Width:  w,
		Height: h,
		Pix:    make([]float32, w*h*4),
	}
}

// Offset returns the index of texel (x, y) in Pix.
func (m *HDRImage) Offset(x, y int) int {
	return (y*m.Width + x) * 4
}

func (m *HDRImage) At(x, y int) Color {
	i := m.Offset(x, y)
	p := m.Pix[i : i+4 : i+4]
	return Color{p[0], p[1], p[2], p[3]}
}

func (m *HDRImage) Set(x, y int, c Color) {
	i := m.Offset(x, y)
	p := m.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c[0], c[1], c[2], c[3]
}

// Fill sets every texel to c.
func (m *HDRImage) Fill(c Color) {
	for i := 0; i < len(m.Pix); i += 4 {
		m.Pix[i] = c[0]
		m.Pix[i+1] = c[1]
		m.Pix[i+2] = c[2]
		m.Pix[i+3] = c[3]
	}
}

// Clone returns a deep copy.
func (m *HDRImage) Clone() *HDRImage {
	out := &HDRImage{Width: m.Width, Height: m.Height, Pix: make([]float32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}
