package cubemap

import (
	"fmt"
	"runtime"
	"sync"

	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/raster"
)

// Kernel computes the color of one output texel. dir is the normalized
// world direction through the texel centre. Kernels must be safe to call
// from several goroutines at once.
type Kernel func(f Face, x, y int, dir mathutil.Vec3) raster.Color

// Rig evaluates a kernel over all six faces of a target. It holds no
// per-capture state, so one Rig may drive any number of captures.
type Rig struct {
	Workers int
}

// NewRig returns a rig using the given number of goroutines
// (runtime.NumCPU when workers <= 0).
func NewRig(workers int) *Rig {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Rig{Workers: workers}
}

// band is a run of rows on one face.
type band struct {
	face   Face
	y0, y1 int
}

// Capture evaluates k for every texel of target, face by face in canonical
// order, and writes the results in place. Faces are independent, so rows are
// spread over the worker goroutines. A panic inside a worker is reported as
// a *fault.BackendError.
func (r *Rig) Capture(target *Cube, k Kernel) error {
	if target == nil || k == nil {
		return fault.Invalid("cubemap: capture needs a target and a kernel")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	size := target.Size
	rows := size / (workers * 2)
	if rows < 1 {
		rows = 1
	}

	bands := make(chan band, workers*2)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range bands {
				if err := r.render(target, k, b); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
			}
		}()
	}

	for f := Face(0); f < FaceCount; f++ {
		for y := 0; y < size; y += rows {
			y1 := y + rows
			if y1 > size {
				y1 = size
			}
			bands <- band{face: f, y0: y, y1: y1}
		}
	}
	close(bands)

	wg.Wait()
	return firstErr
}

func (r *Rig) render(target *Cube, k Kernel, b band) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &fault.BackendError{
				Op:  fmt.Sprintf("capture face %s rows %d-%d", b.face, b.y0, b.y1),
				Err: fmt.Errorf("%v", p),
			}
		}
	}()

	img := target.Faces[b.face]
	size := target.Size
	for y := b.y0; y < b.y1; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, k(b.face, x, y, TexelDirection(b.face, x, y, size)))
		}
	}
	return nil
}
