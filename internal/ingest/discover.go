package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DocumentPattern selects the files ingested from a directory.
const DocumentPattern = "**/*.{pdf,md,markdown,txt}"

// Discover expands directories to the documents beneath them. Other paths,
// including missing ones, are kept as given so they surface as per-document
// failures instead of aborting the run. Duplicates are dropped.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(p), DocumentPattern)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(filepath.Join(p, filepath.FromSlash(m)))
		}
	}
	return out, nil
}
