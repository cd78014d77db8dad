package ibl

import (
	"errors"
	"math"
	"testing"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/raster"
)

func smallOptions() Options {
	return Options{
		Resolution:        8,
		ThetaSteps:        4,
		MaxSamplesPerPass: 10,
		RadianceSamples:   32,
		RadianceLevels:    3,
		Workers:           2,
	}
}

func checkConstant(t *testing.T, what string, c *cubemap.Cube, want raster.Color) {
	t.Helper()
	for f := cubemap.Face(0); f < cubemap.FaceCount; f++ {
		for y := 0; y < c.Size; y++ {
			for x := 0; x < c.Size; x++ {
				got := c.Texel(f, x, y)
				for k := 0; k < 4; k++ {
					if math.Abs(float64(got[k]-want[k])) > 1e-4 {
						t.Fatalf("%s %s(%d,%d) = %v, want %v", what, f, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestProcessEquirect(t *testing.T) {
	p, err := NewPipeline(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	grey := raster.Color{0.5, 1, 2, 1}
	img := raster.NewHDRImage(32, 16)
	img.Fill(grey)

	env, err := p.Process("studio", Source{Equirect: img})
	if err != nil {
		t.Fatal(err)
	}
	if env.Name != "studio" {
		t.Errorf("name %q", env.Name)
	}
	if env.Base.Size != 8 || env.Irradiance.Size != 8 {
		t.Errorf("sizes base %d irradiance %d", env.Base.Size, env.Irradiance.Size)
	}
	if len(env.Radiance) != 3 || p.RadianceLevels() != 3 {
		t.Fatalf("%d radiance levels", len(env.Radiance))
	}
	checkConstant(t, "base", env.Base, grey)
	checkConstant(t, "irradiance", env.Irradiance, grey)
	for i, lvl := range env.Radiance {
		if want := 8 >> i; lvl.Size != want {
			t.Errorf("radiance level %d size %d, want %d", i, lvl.Size, want)
		}
		checkConstant(t, "radiance", lvl, grey)
	}
}

func TestProcessFaces(t *testing.T) {
	p, err := NewPipeline(smallOptions())
	if err != nil {
		t.Fatal(err)
	}
	var src Source
	for i := range src.Faces {
		img := raster.NewHDRImage(16, 16)
		img.Fill(raster.Color{1, 1, 1, 1})
		src.Faces[i] = img
	}
	env, err := p.Process("faces", src)
	if err != nil {
		t.Fatal(err)
	}
	if env.Base.Size != 8 {
		t.Errorf("base resampled to %d", env.Base.Size)
	}
	checkConstant(t, "irradiance", env.Irradiance, raster.Color{1, 1, 1, 1})
}

func TestProcessRejectsBadSources(t *testing.T) {
	p, err := NewPipeline(smallOptions())
	if err != nil {
		t.Fatal(err)
	}

	both := Source{Equirect: raster.NewHDRImage(8, 4)}
	both.Faces[2] = raster.NewHDRImage(4, 4)

	cases := map[string]Source{
		"empty":        {},
		"both":         both,
		"partial set":  {Faces: [cubemap.FaceCount]*raster.HDRImage{raster.NewHDRImage(4, 4)}},
		"empty pixels": {Equirect: &raster.HDRImage{}},
	}
	for name, src := range cases {
		if _, err := p.Process(name, src); !errors.Is(err, fault.ErrInvalidConfig) {
			t.Errorf("%s: got %v, want invalid configuration", name, err)
		}
	}
}

func TestNewPipelineValidation(t *testing.T) {
	cases := map[string]Options{
		"resolution":      {Resolution: 48},
		"theta steps":     {ThetaSteps: -1},
		"per pass":        {MaxSamplesPerPass: -5},
		"radiance count":  {RadianceSamples: 1000},
		"radiance levels": {RadianceLevels: -2},
	}
	for name, o := range cases {
		if _, err := NewPipeline(o); !errors.Is(err, fault.ErrInvalidConfig) {
			t.Errorf("%s: got %v, want invalid configuration", name, err)
		}
	}

	p, err := NewPipeline(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Resolution() != DefaultResolution {
		t.Errorf("default resolution %d", p.Resolution())
	}
}
