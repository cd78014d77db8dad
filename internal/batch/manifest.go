package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one environment variant in the output manifest.
type ManifestEntry struct {
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	RotationDeg float64 `json:"rotation_deg"`
	Resolution  int     `json:"resolution"`
	Levels      int     `json:"levels,omitempty"`
	Seconds     float64 `json:"seconds"`
	Error       string  `json:"error,omitempty"`
	Outputs
}

// WriteManifest writes manifest.json to the output directory.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:        r.Name,
			Source:      r.Source,
			RotationDeg: r.RotationDeg,
			Resolution:  r.Resolution,
			Levels:      len(r.Outputs.Radiance),
			Seconds:     r.Elapsed.Seconds(),
			Error:       r.Error,
			Outputs:     r.Outputs,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
