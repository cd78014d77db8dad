package mathutil

import (
	"math"
	"testing"
)

func TestMat3FromColumnsRoundTrip(t *testing.T) {
	a, b, c := Vec3{1, 2, 3}, Vec3{4, 5, 6}, Vec3{7, 8, 10}
	m := Mat3FromColumns(a, b, c)
	for i, want := range []Vec3{a, b, c} {
		if got := m.Column(i); got != want {
			t.Errorf("column %d: got %v, want %v", i, got, want)
		}
	}
	if got := m.MulVec3(UnitY); got != b {
		t.Errorf("M·e_y = %v, want %v", got, b)
	}
}

func TestRotYIsOrthonormal(t *testing.T) {
	for _, deg := range []float64{0, 30, 90, 180, 275} {
		r := RotY(Deg2Rad(deg))
		if d := r.Det(); math.Abs(d-1) > 1e-12 {
			t.Errorf("%v°: det = %v", deg, d)
		}
		p := Mat3Mul(r, r.Transpose())
		id := Mat3Identity()
		for i := range p {
			if math.Abs(p[i]-id[i]) > 1e-12 {
				t.Fatalf("%v°: R·Rᵀ = %v", deg, p)
			}
		}
	}
	got := RotY(Deg2Rad(90)).MulVec3(UnitX)
	if !got.ApproxEqual(Vec3{0, 0, -1}, 1e-12) {
		t.Errorf("RotY(90°)·x = %v, want -z", got)
	}
}

func TestReflect(t *testing.T) {
	n := UnitY
	v := Vec3{1, 1, 0}.Normalize()
	got := v.Reflect(n)
	want := Vec3{-1, 1, 0}.Normalize()
	if !got.ApproxEqual(want, 1e-12) {
		t.Errorf("reflect = %v, want %v", got, want)
	}
}

func TestPowerOfTwoHelpers(t *testing.T) {
	cases := []struct {
		n    int
		pow2 bool
		log2 int
	}{
		{0, false, 0},
		{1, true, 0},
		{2, true, 1},
		{3, false, 1},
		{64, true, 6},
		{100, false, 6},
		{4096, true, 12},
	}
	for _, c := range cases {
		if got := IsPowerOfTwo(c.n); got != c.pow2 {
			t.Errorf("IsPowerOfTwo(%d) = %v", c.n, got)
		}
		if got := Log2(c.n); got != c.log2 {
			t.Errorf("Log2(%d) = %d, want %d", c.n, got, c.log2)
		}
	}
	if IsPowerOfTwo(-4) {
		t.Error("negative numbers are not powers of two")
	}
}

func TestWrapUnit(t *testing.T) {
	for _, c := range []struct{ in, want float64 }{
		{0, 0}, {0.25, 0.25}, {1, 0}, {1.75, 0.75}, {-0.25, 0.75}, {-1, 0},
	} {
		if got := WrapUnit(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("WrapUnit(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
