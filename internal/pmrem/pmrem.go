// Package pmrem builds prefiltered mipmapped radiance environment maps:
// one cube per roughness level, each convolved with a GGX lobe.
//
// Level 0 is a mirror-like resample of the source. Level i > 0 has half the
// size of level i−1 and roughness i/(levels−1). Each texel takes the view and
// normal along its own direction (N = V = R) and integrates over GGX half
// vectors drawn from a Hammersley sequence, weighting every reflected
// sample by N·L.
package pmrem

import (
	"log/slog"
	"math"
	"time"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/progressive"
	"ibl-prefilter/internal/raster"
	"ibl-prefilter/internal/sampling"
)

const (
	DefaultSamples           = 4096
	DefaultLevels            = 5
	DefaultMaxSamplesPerPass = 1024
)

// Options configures a Prefilterer. Zero values select the defaults.
type Options struct {
	Samples           int // Hammersley points per texel, power of two
	Levels            int
	MaxSamplesPerPass int
	// NoMipFiltering samples only the base level of the source instead of
	// picking a source mip from each sample's solid angle.
	NoMipFiltering bool
	Workers        int
	Logger         *slog.Logger
	OnPass         func(level int, p progressive.Pass)
}

// Prefilterer is immutable after New and safe for concurrent use.
type Prefilterer struct {
	seq      sampling.Sequence
	levels   int
	schedule progressive.Schedule
	filtered bool
	rig      *cubemap.Rig
	log      *slog.Logger
	onPass   func(int, progressive.Pass)
}

// New validates opts and precomputes the sample sequence.
func New(opts Options) (*Prefilterer, error) {
	if opts.Samples == 0 {
		opts.Samples = DefaultSamples
	}
	if opts.Levels == 0 {
		opts.Levels = DefaultLevels
	}
	if opts.MaxSamplesPerPass == 0 {
		opts.MaxSamplesPerPass = DefaultMaxSamplesPerPass
	}
	if opts.Levels < 1 {
		return nil, fault.Invalid("pmrem: levels %d", opts.Levels)
	}
	seq, err := sampling.Hammersley(opts.Samples)
	if err != nil {
		return nil, err
	}
	schedule, err := progressive.NewSchedule(len(seq), opts.MaxSamplesPerPass)
	if err != nil {
		return nil, err
	}
	return &Prefilterer{
		seq:      seq,
		levels:   opts.Levels,
		schedule: schedule,
		filtered: !opts.NoMipFiltering,
		rig:      cubemap.NewRig(opts.Workers),
		log:      logging.OrNop(opts.Logger),
		onPass:   opts.OnPass,
	}, nil
}

// Levels returns the number of cubes Prefilter produces.
func (p *Prefilterer) Levels() int { return p.levels }

// Roughness returns the GGX roughness of a level.
func (p *Prefilterer) Roughness(level int) float64 {
	if p.levels <= 1 {
		return 0
	}
	return float64(level) / float64(p.levels-1)
}

// LevelSize returns the face size of a level for base size size.
func LevelSize(size, level int) int {
	s := size >> level
	if s < 1 {
		s = 1
	}
	return s
}

// Prefilter returns the radiance cubes for src, level 0 first, with level 0
// at size.
func (p *Prefilterer) Prefilter(src *cubemap.Cube, size int) ([]*cubemap.Cube, error) {
	if src == nil {
		return nil, fault.Invalid("pmrem: nil source cube")
	}
	if err := cubemap.ValidateSize(size); err != nil {
		return nil, err
	}

	mips := []*cubemap.Cube{src}
	if p.filtered {
		mips = cubemap.MipChain(src)
	}

	p.log.Info("radiance prefilter",
		"size", size,
		"levels", p.levels,
		"samples", p.schedule.Total,
		"passes", p.schedule.Count())

	out := make([]*cubemap.Cube, 0, p.levels)
	for level := 0; level < p.levels; level++ {
		ls := LevelSize(size, level)
		r := p.Roughness(level)
		start := time.Now()

		var (
			cube *cubemap.Cube
			err  error
		)
		if r == 0 {
			cube, err = p.mirror(mips, ls)
		} else {
			cube, err = p.convolve(mips, level, ls, r)
		}
		if err != nil {
			return nil, err
		}
		p.log.Debug("radiance level done",
			"level", level,
			"size", ls,
			"roughness", r,
			"elapsed", time.Since(start))
		out = append(out, cube)
	}
	return out, nil
}

// mirror resamples the source at the mip closest to the target density.
func (p *Prefilterer) mirror(mips []*cubemap.Cube, size int) (*cubemap.Cube, error) {
	cube, err := cubemap.NewCube(size)
	if err != nil {
		return nil, err
	}
	lod := 0.0
	if p.filtered && mips[0].Size > size {
		lod = float64(mathutil.Log2(mips[0].Size / size))
	}
	err = p.rig.Capture(cube, func(f cubemap.Face, x, y int, dir mathutil.Vec3) raster.Color {
		c := sampleLod(mips, dir, lod)
		c[3] = 1
		return c
	})
	if err != nil {
		return nil, err
	}
	return cube, nil
}

func (p *Prefilterer) convolve(mips []*cubemap.Cube, level, size int, roughness float64) (*cubemap.Cube, error) {
	texelSA := cubemap.TexelSolidAngle(mips[0].Size)
	n := float64(len(p.seq))

	acc := &progressive.Accumulator{Rig: p.rig, Logger: p.log}
	if p.onPass != nil {
		acc.OnPass = func(pass progressive.Pass) { p.onPass(level, pass) }
	}
	return acc.Run(size, p.schedule, func(pass progressive.Pass, f cubemap.Face, x, y int, normal mathutil.Vec3) progressive.Estimate {
		frame := sampling.NewFrame(normal)
		var e progressive.Estimate
		end := pass.Start + pass.Samples
		for i := pass.Start; i < end; i++ {
			h := frame.ToWorld(sampling.ImportanceSampleGGX(p.seq[i], roughness))
			l := normal.Reflect(h)
			nDotL := normal.Dot(l)
			if nDotL <= 0 {
				continue
			}
			lod := 0.0
			if len(mips) > 1 {
				// With V = N the sample pdf reduces to D/4.
				pdf := sampling.DistributionGGX(math.Max(normal.Dot(h), 0), roughness)/4 + 1e-4
				sampleSA := 1 / (n * pdf)
				lod = 0.5*math.Log2(sampleSA/texelSA) + 1
			}
			e.Add(sampleLod(mips, l, lod), nDotL)
		}
		return e
	})
}

// sampleLod reads dir from the mip chain, blending the two nearest levels.
func sampleLod(mips []*cubemap.Cube, dir mathutil.Vec3, lod float64) raster.Color {
	maxLod := float64(len(mips) - 1)
	if lod <= 0 || maxLod == 0 {
		return mips[0].Sample(dir)
	}
	if lod >= maxLod {
		return mips[len(mips)-1].Sample(dir)
	}
	l0 := math.Floor(lod)
	c0 := mips[int(l0)].Sample(dir)
	c1 := mips[int(l0)+1].Sample(dir)
	return c0.Lerp(c1, float32(lod-l0))
}
