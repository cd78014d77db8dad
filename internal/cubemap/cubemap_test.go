package cubemap

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/raster"
)

func colorNear(a, b raster.Color, eps float64) bool {
	for k := range a {
		if math.Abs(float64(a[k]-b[k])) > eps {
			return false
		}
	}
	return true
}

func TestOrientationsAreOrthonormal(t *testing.T) {
	for f := Face(0); f < FaceCount; f++ {
		o := Orientations[f]
		for _, v := range []mathutil.Vec3{o.Look, o.Right, o.Down, o.Up} {
			if math.Abs(v.Len()-1) > 1e-12 {
				t.Errorf("%s: non-unit axis %v", f, v)
			}
		}
		if o.Look.Dot(o.Right) != 0 || o.Look.Dot(o.Down) != 0 || o.Right.Dot(o.Down) != 0 {
			t.Errorf("%s: axes not orthogonal", f)
		}
		if got := TexelDirection(f, 0, 0, 1); !got.ApproxEqual(o.Look, 1e-12) {
			t.Errorf("%s: 1x1 texel looks along %v, want %v", f, got, o.Look)
		}
	}
}

func TestProjectInvertsTexelDirection(t *testing.T) {
	const size = 8
	for f := Face(0); f < FaceCount; f++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				d := TexelDirection(f, x, y, size)
				gf, u, v := Project(d)
				if gf != f {
					t.Fatalf("texel %s(%d,%d) projects to face %s", f, x, y, gf)
				}
				wu := (float64(x) + 0.5) / size
				wv := (float64(y) + 0.5) / size
				if math.Abs(u-wu) > 1e-9 || math.Abs(v-wv) > 1e-9 {
					t.Fatalf("texel %s(%d,%d): uv (%v,%v), want (%v,%v)", f, x, y, u, v, wu, wv)
				}
			}
		}
	}
}

func TestProjectAxes(t *testing.T) {
	cases := []struct {
		dir  mathutil.Vec3
		face Face
	}{
		{mathutil.Vec3{1, 0, 0}, PosX},
		{mathutil.Vec3{-2, 0.5, 0}, NegX},
		{mathutil.Vec3{0, 3, 0}, PosY},
		{mathutil.Vec3{0.1, -1, 0.2}, NegY},
		{mathutil.Vec3{0, 0, 1}, PosZ},
		{mathutil.Vec3{0, 0, -1}, NegZ},
		{mathutil.Vec3{1, 1, 0}, PosX}, // tie resolves to X
		{mathutil.Vec3{0, 1, 1}, PosY}, // tie resolves to Y
	}
	for _, c := range cases {
		if f, _, _ := Project(c.dir); f != c.face {
			t.Errorf("Project(%v) = %s, want %s", c.dir, f, c.face)
		}
	}
}

func TestFaceNames(t *testing.T) {
	for f := Face(0); f < FaceCount; f++ {
		got, ok := ParseFace(f.Suffix())
		if !ok || got != f {
			t.Errorf("ParseFace(%q) = %v, %v", f.Suffix(), got, ok)
		}
	}
	if _, ok := ParseFace("xx"); ok {
		t.Error("ParseFace accepted an unknown suffix")
	}
	if PosY.String() != "+Y" || NegZ.Suffix() != "nz" {
		t.Errorf("unexpected names %s %s", PosY, NegZ.Suffix())
	}
}

func TestNewCubeValidation(t *testing.T) {
	for _, size := range []int{0, -1, 3, 48, MaxSize * 2} {
		c, err := NewCube(size)
		if !errors.Is(err, fault.ErrInvalidConfig) || c != nil {
			t.Errorf("NewCube(%d) = %v, %v", size, c, err)
		}
	}
	c, err := NewCube(16)
	if err != nil {
		t.Fatal(err)
	}
	for f, img := range c.Faces {
		if img.Width != 16 || img.Height != 16 {
			t.Errorf("face %d is %dx%d", f, img.Width, img.Height)
		}
	}
}

func TestCaptureVisitsEveryTexelOnce(t *testing.T) {
	c, _ := NewCube(8)
	var calls atomic.Int64
	rig := NewRig(3)
	err := rig.Capture(c, func(f Face, x, y int, dir mathutil.Vec3) raster.Color {
		calls.Add(1)
		return raster.Color{float32(f), float32(x), float32(y), float32(dir.Len())}
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 6*8*8 {
		t.Errorf("kernel called %d times, want %d", got, 6*8*8)
	}
	for f := Face(0); f < FaceCount; f++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				want := raster.Color{float32(f), float32(x), float32(y), 1}
				got := c.Texel(f, x, y)
				if math.Abs(float64(got[3]-1)) > 1e-6 {
					t.Fatalf("direction not normalized at %s(%d,%d)", f, x, y)
				}
				got[3] = 1
				if got != want {
					t.Fatalf("texel %s(%d,%d) = %v, want %v", f, x, y, got, want)
				}
			}
		}
	}
}

func TestCaptureReportsBackendFailure(t *testing.T) {
	c, _ := NewCube(4)
	err := NewRig(2).Capture(c, func(f Face, x, y int, dir mathutil.Vec3) raster.Color {
		if f == NegY && x == 2 {
			panic("device lost")
		}
		return raster.Color{}
	})
	var be *fault.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *fault.BackendError", err)
	}

	if err := NewRig(1).Capture(nil, nil); !errors.Is(err, fault.ErrInvalidConfig) {
		t.Errorf("nil target: err = %v", err)
	}
}

func TestSampleConstantAndDirectional(t *testing.T) {
	c, _ := NewCube(4)
	c.Fill(raster.Color{0.5, 1, 2, 1})
	for _, d := range []mathutil.Vec3{{1, 0.2, -0.3}, {0, -1, 0}, {0.7, 0.7, 0.1}} {
		got := c.Sample(d)
		if !colorNear(got, raster.Color{0.5, 1, 2, 1}, 1e-6) {
			t.Errorf("Sample(%v) = %v", d, got)
		}
	}

	// Paint +Y distinctly and check the lookup lands there.
	c.Faces[PosY].Fill(raster.Color{9, 9, 9, 1})
	if got := c.Sample(mathutil.Vec3{0.1, 1, -0.1}); math.Abs(float64(got[0]-9)) > 1e-5 {
		t.Errorf("+Y lookup = %v", got)
	}
}

func TestDownsampleAndMipChain(t *testing.T) {
	c, _ := NewCube(4)
	for f := range c.Faces {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				c.Faces[f].Set(x, y, raster.Color{float32(x + 4*y), 0, 0, 1})
			}
		}
	}
	d := c.Downsample()
	if d.Size != 2 {
		t.Fatalf("size = %d", d.Size)
	}
	// Top-left block holds 0, 1, 4, 5.
	if got := d.Texel(PosX, 0, 0)[0]; got != 2.5 {
		t.Errorf("mean = %v, want 2.5", got)
	}

	chain := MipChain(c)
	if len(chain) != 3 || chain[2].Size != 1 {
		t.Fatalf("chain sizes wrong: %d levels", len(chain))
	}
	if chain[0] != c {
		t.Error("chain must start with the source")
	}
	if got := chain[2].Texel(NegZ, 0, 0)[0]; got != 7.5 {
		t.Errorf("1x1 mean = %v, want 7.5", got)
	}
}

func TestTexelSolidAngleSumsToSphere(t *testing.T) {
	const size = 16
	total := TexelSolidAngle(size) * 6 * size * size
	if math.Abs(total-4*math.Pi) > 1e-9 {
		t.Errorf("total = %v", total)
	}
}
