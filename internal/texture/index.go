package texture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/imageio"
)

// Entry is one environment found on disk: a panorama, a six-face set, or
// both when they share a stem (the panorama is then preferred).
type Entry struct {
	Name     string
	Panorama string
	Faces    [cubemap.FaceCount]string
}

// HasFaces reports whether all six faces were found.
func (e *Entry) HasFaces() bool {
	for _, p := range e.Faces {
		if p == "" {
			return false
		}
	}
	return true
}

// Index maps lowercase environment stems to their files.
// Radiance pictures take priority over LDR files for the same stem.
type Index struct {
	entries map[string]*Entry
}

// BuildIndex scans dir and its subdirectories for supported images.
// Files named <stem>_px, _nx, _py, _ny, _pz, _nz form a face set.
func BuildIndex(dir string) (*Index, error) {
	idx := &Index{entries: make(map[string]*Entry)}

	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageio.Supported(path) {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))

		face, base := splitFace(stem)
		e := idx.entries[base]
		if e == nil {
			e = &Entry{Name: base}
			idx.entries[base] = e
		}
		if face < 0 {
			e.Panorama = prefer(e.Panorama, path)
		} else {
			e.Faces[face] = prefer(e.Faces[face], path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// splitFace strips a face suffix from stem. face is -1 when there is none.
func splitFace(stem string) (face cubemap.Face, base string) {
	i := strings.LastIndexByte(stem, '_')
	if i <= 0 {
		return -1, stem
	}
	f, ok := cubemap.ParseFace(stem[i+1:])
	if !ok {
		return -1, stem
	}
	return f, stem[:i]
}

// prefer keeps existing unless candidate is HDR and existing is not.
func prefer(existing, candidate string) string {
	if existing == "" {
		return candidate
	}
	if imageio.IsHDR(candidate) && !imageio.IsHDR(existing) {
		return candidate
	}
	return existing
}

// Lookup returns the entry for an environment name, or (nil, false).
func (idx *Index) Lookup(name string) (*Entry, bool) {
	base := filepath.Base(filepath.ToSlash(name))
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	e, ok := idx.entries[stem]
	return e, ok
}

// Environments returns every usable entry sorted by name.
func (idx *Index) Environments() []*Entry {
	var out []*Entry
	for _, e := range idx.entries {
		if e.Panorama != "" || e.HasFaces() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Incomplete returns the names of face sets missing at least one face and
// lacking a panorama to fall back on.
func (idx *Index) Incomplete() []string {
	var out []string
	for name, e := range idx.entries {
		if e.Panorama == "" && !e.HasFaces() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of usable environments.
func (idx *Index) Len() int {
	return len(idx.Environments())
}
