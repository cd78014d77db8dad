package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"ibl-prefilter/internal/ibl"
	"ibl-prefilter/internal/irradiance"
	"ibl-prefilter/internal/mathutil"
	"ibl-prefilter/internal/pmrem"
)

// Config holds all configurable paths and convolution settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir"`
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// Convolution settings
	Resolution                int       `json:"resolution"`
	ThetaSteps                int       `json:"theta_steps"`
	MaxSamplesPerPass         int       `json:"max_samples_per_pass"`
	Rotations                 []float64 `json:"rotations_deg"`
	RadianceSamples           int       `json:"radiance_samples"`
	RadianceLevels            int       `json:"radiance_levels"`
	RadianceMaxSamplesPerPass int       `json:"radiance_max_samples_per_pass"`
	Seed                      uint32    `json:"seed"`

	// Output settings
	NoPreview    bool `json:"no_preview"`
	PreviewWidth int  `json:"preview_width"`

	// Parallelism: Jobs environments at once, Workers goroutines per capture.
	Jobs    int `json:"jobs"`
	Workers int `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values. BaseDir defaults to
// the directory holding the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(path)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Resolution > 0 {
		c.Resolution = flags.Resolution
	}
	if flags.ThetaSteps > 0 {
		c.ThetaSteps = flags.ThetaSteps
	}
	if flags.MaxSamplesPerPass > 0 {
		c.MaxSamplesPerPass = flags.MaxSamplesPerPass
	}
	if len(flags.Rotations) > 0 {
		c.Rotations = flags.Rotations
	}
	if flags.RadianceSamples > 0 {
		c.RadianceSamples = flags.RadianceSamples
	}
	if flags.RadianceLevels > 0 {
		c.RadianceLevels = flags.RadianceLevels
	}
	if flags.RadianceMaxSamplesPerPass > 0 {
		c.RadianceMaxSamplesPerPass = flags.RadianceMaxSamplesPerPass
	}
	if flags.Seed != 0 {
		c.Seed = flags.Seed
	}
	if flags.NoPreview {
		c.NoPreview = true
	}
	if flags.PreviewWidth > 0 {
		c.PreviewWidth = flags.PreviewWidth
	}
	if flags.Jobs > 0 {
		c.Jobs = flags.Jobs
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Resolve relative paths against base dir
	if c.InputDir == "" {
		c.InputDir = "envmaps"
	}
	if c.OutputDir == "" {
		c.OutputDir = "prefiltered"
	}
	if c.BaseDir != "" {
		if !filepath.IsAbs(c.InputDir) && flags.InputDir == "" {
			c.InputDir = filepath.Join(c.BaseDir, c.InputDir)
		}
		if !filepath.IsAbs(c.OutputDir) && flags.OutputDir == "" {
			c.OutputDir = filepath.Join(c.BaseDir, c.OutputDir)
		}
	}

	// Defaults for convolution settings
	if c.Resolution <= 0 {
		c.Resolution = ibl.DefaultResolution
	}
	if c.ThetaSteps <= 0 {
		c.ThetaSteps = irradiance.DefaultThetaSteps
	}
	if c.MaxSamplesPerPass <= 0 {
		c.MaxSamplesPerPass = irradiance.DefaultMaxSamplesPerPass
	}
	if len(c.Rotations) == 0 {
		c.Rotations = []float64{0}
	}
	if c.RadianceSamples <= 0 {
		c.RadianceSamples = pmrem.DefaultSamples
	}
	if c.RadianceLevels <= 0 {
		c.RadianceLevels = pmrem.DefaultLevels
	}
	if c.RadianceMaxSamplesPerPass <= 0 {
		c.RadianceMaxSamplesPerPass = pmrem.DefaultMaxSamplesPerPass
	}
	if c.PreviewWidth <= 0 {
		c.PreviewWidth = 512
	}
	if c.Jobs <= 0 {
		c.Jobs = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Pipeline returns the pipeline options for one rotation, in degrees.
func (c *Config) Pipeline(rotationDeg float64, log *slog.Logger) ibl.Options {
	return ibl.Options{
		Resolution:                c.Resolution,
		ThetaSteps:                c.ThetaSteps,
		MaxSamplesPerPass:         c.MaxSamplesPerPass,
		Rotation:                  mathutil.Deg2Rad(rotationDeg),
		RadianceSamples:           c.RadianceSamples,
		RadianceLevels:            c.RadianceLevels,
		RadianceMaxSamplesPerPass: c.RadianceMaxSamplesPerPass,
		Seed:                      c.Seed,
		Workers:                   c.Workers,
		Logger:                    log,
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir                  string
	OutputDir                 string
	Resolution                int
	ThetaSteps                int
	MaxSamplesPerPass         int
	Rotations                 []float64
	RadianceSamples           int
	RadianceLevels            int
	RadianceMaxSamplesPerPass int
	Seed                      uint32
	NoPreview                 bool
	PreviewWidth              int
	Jobs                      int
	Workers                   int
}

// ParseRotations parses a comma-separated list of yaw angles in degrees,
// e.g. "0,90,-45.5". An empty string yields nil.
func ParseRotations(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("config: bad rotation %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
