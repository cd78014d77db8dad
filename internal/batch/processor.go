package batch

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/ibl"
	"ibl-prefilter/internal/imageio"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/postprocess"
	"ibl-prefilter/internal/raster"
	"ibl-prefilter/internal/texture"

	"github.com/HugoSmits86/nativewebp"
)

// Variant is one way of processing every environment: a yaw rotation and
// the pipeline configured for it.
type Variant struct {
	RotationDeg float64
	Pipeline    *ibl.Pipeline
}

// NewVariants builds one pipeline per rotation.
func NewVariants(rotations []float64, options func(rotationDeg float64) ibl.Options) ([]Variant, error) {
	out := make([]Variant, 0, len(rotations))
	for _, r := range rotations {
		p, err := ibl.NewPipeline(options(r))
		if err != nil {
			return nil, fmt.Errorf("batch: rotation %g: %w", r, err)
		}
		out = append(out, Variant{RotationDeg: r, Pipeline: p})
	}
	return out, nil
}

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir    string
	Resolver     texture.Resolver
	Variants     []Variant
	Preview      bool
	PreviewWidth int
	Jobs         int
	Logger       *slog.Logger
}

// Outputs lists the files written for one environment, relative to the
// output directory.
type Outputs struct {
	Irradiance []string   `json:"irradiance"`
	Radiance   [][]string `json:"radiance"`
	Preview    string     `json:"preview,omitempty"`
}

// Result holds the outcome of processing one environment variant.
type Result struct {
	Name        string
	Source      string
	RotationDeg float64
	Resolution  int
	Success     bool
	Error       string
	Elapsed     time.Duration
	Outputs     Outputs
}

type job struct {
	entry   *texture.Entry
	variant Variant
}

// Run processes every entry under every variant using a worker pool.
// Results come back in entry-major order.
func Run(cfg Config, entries []*texture.Entry) []Result {
	log := logging.OrNop(cfg.Logger)
	workers := cfg.Jobs
	if workers <= 0 {
		workers = 1
	}

	var jobs []job
	for _, e := range entries {
		for _, v := range cfg.Variants {
			jobs = append(jobs, job{entry: e, variant: v})
		}
	}
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					log.Info("progress", "done", p, "total", total, "per_min", math.Round(rate*600)/10)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(cfg, jobs[idx], len(cfg.Variants) > 1)
				if !results[idx].Success {
					log.Warn("environment failed", "name", results[idx].Name, "err", results[idx].Error)
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

// OutputName returns the directory name of an environment variant. The
// rotation is only spelled out when several variants exist.
func OutputName(name string, rotationDeg float64, tagged bool) string {
	if !tagged {
		return name
	}
	return fmt.Sprintf("%s_rot%g", name, rotationDeg)
}

func processJob(cfg Config, j job, tagged bool) Result {
	began := time.Now()
	res := Result{
		Name:        OutputName(j.entry.Name, j.variant.RotationDeg, tagged),
		Source:      j.entry.Name,
		RotationDeg: j.variant.RotationDeg,
		Resolution:  j.variant.Pipeline.Resolution(),
	}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Elapsed = time.Since(began)
		return res
	}

	src, err := cfg.Resolver.Resolve(j.entry)
	if err != nil {
		return fail(err)
	}
	env, err := j.variant.Pipeline.Process(res.Name, src)
	if err != nil {
		return fail(err)
	}

	out, err := WriteEnvironment(cfg.OutputDir, env)
	if err != nil {
		return fail(err)
	}
	if cfg.Preview {
		rel := filepath.Join(env.Name, "preview.webp")
		if err := WritePreview(filepath.Join(cfg.OutputDir, rel), env, cfg.PreviewWidth); err != nil {
			return fail(err)
		}
		out.Preview = filepath.ToSlash(rel)
	}

	res.Outputs = out
	res.Success = true
	res.Elapsed = time.Since(began)
	return res
}

// WriteEnvironment saves the irradiance faces and every radiance level of
// env under outputDir/<name>/ as Radiance pictures.
func WriteEnvironment(outputDir string, env *ibl.Environment) (Outputs, error) {
	var out Outputs
	save := func(rel string, img *raster.HDRImage) error {
		return imageio.SaveHDR(filepath.Join(outputDir, rel), img)
	}

	for f := cubemap.Face(0); f < cubemap.FaceCount; f++ {
		rel := filepath.Join(env.Name, fmt.Sprintf("irradiance_%s.hdr", f.Suffix()))
		if err := save(rel, env.Irradiance.Faces[f]); err != nil {
			return Outputs{}, err
		}
		out.Irradiance = append(out.Irradiance, filepath.ToSlash(rel))
	}
	for level, cube := range env.Radiance {
		var names []string
		for f := cubemap.Face(0); f < cubemap.FaceCount; f++ {
			rel := filepath.Join(env.Name, fmt.Sprintf("radiance_%d_%s.hdr", level, f.Suffix()))
			if err := save(rel, cube.Faces[f]); err != nil {
				return Outputs{}, err
			}
			names = append(names, filepath.ToSlash(rel))
		}
		out.Radiance = append(out.Radiance, names)
	}
	return out, nil
}

// WritePreview saves a lossless WebP contact sheet: the base cube, the
// irradiance cube and each radiance level, one cross per row.
func WritePreview(path string, env *ibl.Environment, width int) error {
	cubes := append([]*cubemap.Cube{env.Base, env.Irradiance}, env.Radiance...)
	img := postprocess.Sheet(cubes, width, raster.DefaultToneMap())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("WebP encode: %v", err)
	}
	return nil
}
