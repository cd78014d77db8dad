package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ibl-prefilter/internal/batch"
	"ibl-prefilter/internal/imageio"
	"ibl-prefilter/internal/raster"
)

// cubeinfo prints texel statistics for image files, or summarizes every
// environment listed in a manifest.json.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cubeinfo <file.hdr|manifest.json>...")
		os.Exit(2)
	}

	failed := false
	for _, path := range os.Args[1:] {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = manifest(path)
		} else {
			err = file(path)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func file(path string) error {
	img, err := imageio.Load(path)
	if err != nil {
		return err
	}
	s := raster.ComputeStats(img)
	fmt.Printf("%s: %dx%d\n", path, img.Width, img.Height)
	fmt.Printf("  Min:  %.4g %.4g %.4g\n", s.Min[0], s.Min[1], s.Min[2])
	fmt.Printf("  Max:  %.4g %.4g %.4g\n", s.Max[0], s.Max[1], s.Max[2])
	fmt.Printf("  Mean: %.4g %.4g %.4g\n", s.Mean[0], s.Mean[1], s.Mean[2])
	fmt.Printf("  Peak luminance: %.4g\n", s.MaxLum)
	if s.NonFinite > 0 {
		fmt.Printf("  Non-finite texels: %d\n", s.NonFinite)
	}
	return nil
}

func manifest(path string) error {
	entries, err := batch.ReadManifest(path)
	if err != nil {
		return err
	}
	root := filepath.Dir(path)
	fmt.Printf("%s: %d environments\n", path, len(entries))
	for _, e := range entries {
		if e.Error != "" {
			fmt.Printf("  %s: FAILED %s\n", e.Name, e.Error)
			continue
		}
		missing := 0
		for _, rel := range e.Irradiance {
			if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
				missing++
			}
		}
		for _, level := range e.Radiance {
			for _, rel := range level {
				if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
					missing++
				}
			}
		}
		fmt.Printf("  %s: %d px, %d levels, rotation %g, %.1fs",
			e.Name, e.Resolution, e.Levels, e.RotationDeg, e.Seconds)
		if missing > 0 {
			fmt.Printf(", %d files missing", missing)
		}
		fmt.Println()

		// Mean irradiance over the six faces.
		var mean raster.Color
		for _, rel := range e.Irradiance {
			img, err := imageio.Load(filepath.Join(root, rel))
			if err != nil {
				continue
			}
			mean = mean.Add(raster.ComputeStats(img).Mean.Scale(1 / float32(len(e.Irradiance))))
		}
		fmt.Printf("    Irradiance mean: %.4g %.4g %.4g\n", mean[0], mean[1], mean[2])
	}
	return nil
}
