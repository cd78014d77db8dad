// Package irradiance computes diffuse irradiance cube maps by stratified
// Monte-Carlo integration of the cosine-weighted hemisphere.
//
// The hemisphere around each output normal is cut into a ThetaSteps ×
// 4·ThetaSteps grid in (θ, φ). Every grid cell receives exactly one sample,
// jittered inside the cell by a hash of the output texel and the sample
// index. The sample budget is split into passes of at most
// MaxSamplesPerPass samples and folded together by the progressive
// accumulator.
package irradiance

import (
	"log/slog"
	"math"
	"time"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/progressive"
	"ibl-prefilter/internal/sampling"
)

const (
	DefaultThetaSteps        = 60
	DefaultMaxSamplesPerPass = 500

	// phiPerTheta keeps grid cells roughly square on the hemisphere.
	phiPerTheta = 4
)

// Options configures a Convolver. Zero values select the defaults.
type Options struct {
	ThetaSteps        int
	MaxSamplesPerPass int
	Seed              uint32
	Workers           int
	Logger            *slog.Logger
	OnPass            func(progressive.Pass)
}

// Convolver is immutable after New and safe for concurrent Convolve calls.
type Convolver struct {
	thetaSteps int
	phiSteps   int
	thetaStep  float64
	phiStep    float64
	schedule   progressive.Schedule
	seed       uint32
	rig        *cubemap.Rig
	log        *slog.Logger
	onPass     func(progressive.Pass)
}

// New validates opts and precomputes the sampling grid.
func New(opts Options) (*Convolver, error) {
	if opts.ThetaSteps == 0 {
		opts.ThetaSteps = DefaultThetaSteps
	}
	if opts.MaxSamplesPerPass == 0 {
		opts.MaxSamplesPerPass = DefaultMaxSamplesPerPass
	}
	if opts.ThetaSteps < 1 {
		return nil, fault.Invalid("irradiance: theta steps %d", opts.ThetaSteps)
	}

	phiSteps := opts.ThetaSteps * phiPerTheta
	schedule, err := progressive.NewSchedule(opts.ThetaSteps*phiSteps, opts.MaxSamplesPerPass)
	if err != nil {
		return nil, err
	}

	return &Convolver{
		thetaSteps: opts.ThetaSteps,
		phiSteps:   phiSteps,
		thetaStep:  mathutil.HalfPi / float64(opts.ThetaSteps),
		phiStep:    mathutil.TwoPi / float64(phiSteps),
		schedule:   schedule,
		seed:       opts.Seed,
		rig:        cubemap.NewRig(opts.Workers),
		log:        logging.OrNop(opts.Logger),
		onPass:     opts.OnPass,
	}, nil
}

// TotalSamples returns ThetaSteps × PhiSteps.
func (c *Convolver) TotalSamples() int { return c.schedule.Total }

// PassCount returns the number of capture passes per convolution.
func (c *Convolver) PassCount() int { return c.schedule.Count() }

// Convolve returns a new cube of the given size whose texels hold the
// cosine-weighted hemispherical mean of src around each texel direction.
// A source of constant radiance c yields c everywhere.
func (c *Convolver) Convolve(src *cubemap.Cube, size int) (*cubemap.Cube, error) {
	if src == nil {
		return nil, fault.Invalid("irradiance: nil source cube")
	}
	if err := cubemap.ValidateSize(size); err != nil {
		return nil, err
	}

	c.log.Info("irradiance convolution",
		"size", size,
		"samples", c.schedule.Total,
		"passes", c.schedule.Count())
	start := time.Now()

	acc := &progressive.Accumulator{Rig: c.rig, Logger: c.log, OnPass: c.onPass}
	out, err := acc.Run(size, c.schedule, func(p progressive.Pass, f cubemap.Face, x, y int, n mathutil.Vec3) progressive.Estimate {
		return c.integrate(src, p, sampling.TexelKey{Face: int(f), X: x, Y: y}, n)
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("irradiance done", "elapsed", time.Since(start))
	return out, nil
}

// integrate evaluates the grid cells [p.Start, p.Start+p.Samples) for one
// output normal. The pass result is the cosθ·sinθ weighted mean of the
// radiance, not a sample-count average scaled by π.
func (c *Convolver) integrate(src *cubemap.Cube, p progressive.Pass, key sampling.TexelKey, normal mathutil.Vec3) progressive.Estimate {
	frame := sampling.NewFrame(normal)

	var e progressive.Estimate
	end := p.Start + p.Samples
	for i := p.Start; i < end; i++ {
		phi := float64(i%c.phiSteps) * c.phiStep
		theta := float64(i/c.phiSteps) * c.thetaStep

		r1, r2 := sampling.Jitter(c.seed, key, uint32(i))
		phi += r1 * c.phiStep
		theta += r2 * c.thetaStep

		st, ct := math.Sincos(theta)
		// cosθ from the rendering equation, sinθ for the solid angle of a
		// (θ, φ) grid cell.
		weight := ct * st

		dir := frame.ToWorld(sampling.Spherical(theta, phi))
		e.Add(src.Sample(dir), weight)
	}
	return e
}
