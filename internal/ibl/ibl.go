// Package ibl ties the converter and both convolvers into one pipeline:
// a panoramic source becomes a base cube, from which the diffuse irradiance
// cube and the prefiltered radiance levels are derived side by side.
package ibl

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ibl-prefilter/internal/convert"
	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/fault"
	"ibl-prefilter/internal/irradiance"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/pmrem"
	"ibl-prefilter/internal/raster"
)

// DefaultResolution is the face size of the base, irradiance and level-0
// radiance cubes.
const DefaultResolution = 64

// Options is the full configuration surface of one pipeline. Zero values
// select each component's defaults.
type Options struct {
	Resolution        int
	ThetaSteps        int
	MaxSamplesPerPass int
	Rotation          float64 // yaw, radians

	RadianceSamples           int
	RadianceLevels            int
	RadianceMaxSamplesPerPass int

	Seed    uint32
	Workers int
	Logger  *slog.Logger
}

// Source is a decoded light source: either an equirectangular panorama or
// six faces in canonical order. Exactly one must be set.
type Source struct {
	Equirect *raster.HDRImage
	Faces    [cubemap.FaceCount]*raster.HDRImage
}

func (s Source) hasFaces() bool {
	for _, f := range s.Faces {
		if f != nil {
			return true
		}
	}
	return false
}

// Environment holds everything derived from one source.
type Environment struct {
	Name       string
	Base       *cubemap.Cube
	Irradiance *cubemap.Cube
	Radiance   []*cubemap.Cube
}

// Pipeline is immutable after NewPipeline and safe for concurrent use.
type Pipeline struct {
	resolution int
	conv       *convert.Converter
	irr        *irradiance.Convolver
	pre        *pmrem.Prefilterer
	log        *slog.Logger
}

// NewPipeline validates opts and builds the components.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Resolution == 0 {
		opts.Resolution = DefaultResolution
	}
	if err := cubemap.ValidateSize(opts.Resolution); err != nil {
		return nil, fmt.Errorf("ibl: resolution: %w", err)
	}
	log := logging.OrNop(opts.Logger)

	irr, err := irradiance.New(irradiance.Options{
		ThetaSteps:        opts.ThetaSteps,
		MaxSamplesPerPass: opts.MaxSamplesPerPass,
		Seed:              opts.Seed,
		Workers:           opts.Workers,
		Logger:            log.With("stage", "irradiance"),
	})
	if err != nil {
		return nil, err
	}
	pre, err := pmrem.New(pmrem.Options{
		Samples:           opts.RadianceSamples,
		Levels:            opts.RadianceLevels,
		MaxSamplesPerPass: opts.RadianceMaxSamplesPerPass,
		Workers:           opts.Workers,
		Logger:            log.With("stage", "radiance"),
	})
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		resolution: opts.Resolution,
		conv: &convert.Converter{
			Rotation: opts.Rotation,
			Workers:  opts.Workers,
			Logger:   log.With("stage", "convert"),
		},
		irr: irr,
		pre: pre,
		log: log,
	}, nil
}

// Resolution returns the face size of the base cube.
func (p *Pipeline) Resolution() int { return p.resolution }

// RadianceLevels returns the number of radiance cubes per environment.
func (p *Pipeline) RadianceLevels() int { return p.pre.Levels() }

// Process converts src to a base cube and derives its irradiance and
// radiance maps. The two derivations run concurrently.
func (p *Pipeline) Process(name string, src Source) (*Environment, error) {
	start := time.Now()
	base, err := p.base(src)
	if err != nil {
		return nil, fmt.Errorf("ibl: %s: %w", name, err)
	}

	env := &Environment{Name: name, Base: base}
	var (
		wg             sync.WaitGroup
		irrErr, radErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		env.Irradiance, irrErr = p.irr.Convolve(base, p.resolution)
	}()
	go func() {
		defer wg.Done()
		env.Radiance, radErr = p.pre.Prefilter(base, p.resolution)
	}()
	wg.Wait()
	if err := errors.Join(irrErr, radErr); err != nil {
		return nil, fmt.Errorf("ibl: %s: %w", name, err)
	}

	p.log.Info("environment processed", "name", name, "elapsed", time.Since(start).Round(time.Millisecond))
	return env, nil
}

func (p *Pipeline) base(src Source) (*cubemap.Cube, error) {
	switch faces := src.hasFaces(); {
	case src.Equirect != nil && faces:
		return nil, fault.Invalid("source has both a panorama and faces")
	case src.Equirect != nil:
		return p.conv.Convert(src.Equirect, p.resolution)
	case faces:
		return p.conv.FromFaces(src.Faces, p.resolution)
	default:
		return nil, fault.Invalid("empty source")
	}
}
