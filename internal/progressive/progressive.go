// Package progressive splits a fixed sample budget into bounded capture
// passes and folds the passes into one running estimate.
//
// Two cube targets are used in ping-pong fashion: pass n reads the running
// result from buffer (n+1)%2 and writes the updated result to buffer n%2.
// The running sum of sample weights travels in the alpha channel, so each
// pass is blended in proportion to the weight it contributed. The final
// estimate equals the weighted mean over all samples however the budget is
// partitioned; when every pass carries the same weight the blend factor is
// the familiar 1/(n+1).
package progressive

import (
	"fmt"
	"log/slog"
	"time"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/raster"
)

// Schedule partitions Total sample indices into passes of at most PerPass.
type Schedule struct {
	Total   int
	PerPass int
}

// NewSchedule validates and returns a schedule.
func NewSchedule(total, perPass int) (Schedule, error) {
	if total <= 0 {
		return Schedule{}, fault.Invalid("progressive: total samples %d", total)
	}
	if perPass <= 0 {
		return Schedule{}, fault.Invalid("progressive: samples per pass %d", perPass)
	}
	return Schedule{Total: total, PerPass: perPass}, nil
}

// Count returns ceil(Total / PerPass).
func (s Schedule) Count() int {
	return (s.Total + s.PerPass - 1) / s.PerPass
}

// Range returns the first sample index of pass and how many samples it
// covers. The ranges of all passes tile [0, Total) without overlap.
func (s Schedule) Range(pass int) (start, n int) {
	start = pass * s.PerPass
	n = s.PerPass
	if start+n > s.Total {
		n = s.Total - start
	}
	if n < 0 {
		n = 0
	}
	return start, n
}

// Pass describes one capture pass while it runs.
type Pass struct {
	Index    int
	Count    int
	Start    int // first global sample index
	Samples  int // samples in this pass
	Previous *cubemap.Cube
}

// Estimate is one texel's contribution from one pass: the weighted radiance
// sum and the total weight of the samples taken.
type Estimate struct {
	Sum    [3]float64
	Weight float64
}

// Add accumulates weight·c.
func (e *Estimate) Add(c raster.Color, weight float64) {
	e.Sum[0] += float64(c[0]) * weight
	e.Sum[1] += float64(c[1]) * weight
	e.Sum[2] += float64(c[2]) * weight
	e.Weight += weight
}

// Kernel evaluates the samples [p.Start, p.Start+p.Samples) for one texel.
type Kernel func(p Pass, f cubemap.Face, x, y int, dir mathutil.Vec3) Estimate

// Accumulator drives the pass loop.
type Accumulator struct {
	Rig    *cubemap.Rig
	Logger *slog.Logger
	// OnPass, when set, is called after each pass completes.
	OnPass func(Pass)
}

// Blend folds e into the running texel prev, whose alpha holds the weight
// accumulated so far.
func Blend(prev raster.Color, e Estimate) raster.Color {
	if e.Weight <= 0 {
		return prev
	}
	w0 := float64(prev[3])
	total := w0 + e.Weight
	t := e.Weight / total
	var out raster.Color
	for k := 0; k < 3; k++ {
		mean := e.Sum[k] / e.Weight
		p := float64(prev[k])
		out[k] = float32(p + (mean-p)*t)
	}
	out[3] = float32(total)
	return out
}

// Run allocates the ping-pong targets and executes every pass of s in order.
// The returned cube holds the final estimate with alpha set to 1.
func (a *Accumulator) Run(size int, s Schedule, k Kernel) (*cubemap.Cube, error) {
	if s.Total <= 0 || s.PerPass <= 0 {
		return nil, fault.Invalid("progressive: empty schedule %+v", s)
	}
	if err := cubemap.ValidateSize(size); err != nil {
		return nil, err
	}
	rig := a.Rig
	if rig == nil {
		rig = cubemap.NewRig(0)
	}
	log := logging.OrNop(a.Logger)

	var targets [2]*cubemap.Cube
	for i := range targets {
		c, err := cubemap.NewCube(size)
		if err != nil {
			return nil, err
		}
		targets[i] = c
	}

	count := s.Count()
	for i := 0; i < count; i++ {
		cur := targets[i%2]
		var prev *cubemap.Cube
		if i > 0 {
			prev = targets[(i+1)%2]
		}
		start, n := s.Range(i)
		p := Pass{Index: i, Count: count, Start: start, Samples: n, Previous: prev}

		began := time.Now()
		err := rig.Capture(cur, func(f cubemap.Face, x, y int, dir mathutil.Vec3) raster.Color {
			var old raster.Color
			if prev != nil {
				old = prev.Texel(f, x, y)
			}
			return Blend(old, k(p, f, x, y, dir))
		})
		if err != nil {
			return nil, fmt.Errorf("progressive: pass %d/%d: %w", i+1, count, err)
		}
		log.Debug("pass done", "pass", i+1, "of", count, "samples", n, "elapsed", time.Since(began))
		if a.OnPass != nil {
			a.OnPass(p)
		}
	}

	result := targets[(count-1)%2]
	finalize(result)
	return result, nil
}

// finalize replaces the carried weights with opaque alpha.
func finalize(c *cubemap.Cube) {
	for _, img := range c.Faces {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 1
		}
	}
}
