package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ibl-prefilter/internal/batch"
	"ibl-prefilter/internal/config"
	"ibl-prefilter/internal/ibl"
	"ibl-prefilter/internal/logging"
	"ibl-prefilter/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	only := flag.String("env", "", "Process only the environment with this name")
	testN := flag.Int("test", 0, "Process only the first N environments")
	inputDir := flag.String("input", "", "Directory of panoramas and face sets (default: envmaps)")
	outputDir := flag.String("output", "", "Output directory (default: prefiltered)")
	resolution := flag.Int("resolution", 0, "Cube face size, power of two (default: 64)")
	thetaSteps := flag.Int("theta", 0, "Irradiance polar steps; samples = 4*theta^2 (default: 60)")
	perPass := flag.Int("per-pass", 0, "Irradiance samples per pass (default: 500)")
	rotations := flag.String("rotate", "", "Comma-separated yaw rotations in degrees (default: 0)")
	radSamples := flag.Int("radiance-samples", 0, "GGX samples per radiance texel, power of two (default: 4096)")
	radLevels := flag.Int("levels", 0, "Radiance roughness levels (default: 5)")
	radPerPass := flag.Int("radiance-per-pass", 0, "GGX samples per radiance pass (default: 1024)")
	seed := flag.Uint("seed", 0, "Jitter seed")
	noPreview := flag.Bool("no-preview", false, "Skip preview.webp")
	previewWidth := flag.Int("preview-width", 0, "Preview sheet width in pixels (default: 512)")
	jobs := flag.Int("jobs", 0, "Environments processed at once (default: 2)")
	workers := flag.Int("workers", 0, "Goroutines per capture (default: NumCPU)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	log := logging.New(os.Stderr, *verbose)

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	rots, err := config.ParseRotations(*rotations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:                  *inputDir,
		OutputDir:                 *outputDir,
		Resolution:                *resolution,
		ThetaSteps:                *thetaSteps,
		MaxSamplesPerPass:         *perPass,
		Rotations:                 rots,
		RadianceSamples:           *radSamples,
		RadianceLevels:            *radLevels,
		RadianceMaxSamplesPerPass: *radPerPass,
		Seed:                      uint32(*seed),
		NoPreview:                 *noPreview,
		PreviewWidth:              *previewWidth,
		Jobs:                      *jobs,
		Workers:                   *workers,
	})

	// Build environment index
	index, err := texture.BuildIndex(cfg.InputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", cfg.InputDir, err)
		os.Exit(1)
	}
	for _, name := range index.Incomplete() {
		fmt.Fprintf(os.Stderr, "Warning: %s: incomplete face set, skipped\n", name)
	}

	entries := index.Environments()
	if *only != "" {
		e, ok := index.Lookup(*only)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: environment %q not found in %s\n", *only, cfg.InputDir)
			os.Exit(1)
		}
		entries = []*texture.Entry{e}
	}

	// Limit for testing
	if *testN > 0 && *testN < len(entries) {
		entries = entries[:*testN]
	}

	if len(entries) == 0 {
		fmt.Println("No environments to process.")
		os.Exit(0)
	}

	variants, err := batch.NewVariants(cfg.Rotations, func(deg float64) ibl.Options {
		return cfg.Pipeline(deg, log.With("rotation", deg))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print summary
	fmt.Println("IBL prefilter: irradiance + radiance cubes")
	fmt.Printf("Environments: %d, Rotations: %v, Jobs: %d, Workers: %d\n",
		len(entries), cfg.Rotations, cfg.Jobs, cfg.Workers)
	fmt.Printf("Resolution: %d, Irradiance samples: %d, Radiance: %d levels x %d samples\n",
		cfg.Resolution, 4*cfg.ThetaSteps*cfg.ThetaSteps, cfg.RadianceLevels, cfg.RadianceSamples)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir:    cfg.OutputDir,
		Resolver:     texture.NewCache(nil),
		Variants:     variants,
		Preview:      !cfg.NoPreview,
		PreviewWidth: cfg.PreviewWidth,
		Jobs:         cfg.Jobs,
		Logger:       log,
	}

	results := batch.Run(batchCfg, entries)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Processed: %d/%d\n", success, len(results))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
