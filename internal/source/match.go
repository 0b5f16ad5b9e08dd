package source

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Match enumerates files under root ending in each of extensions. Results are
// absolute, grouped per extension in the order supplied, and otherwise in
// traversal order. Unreadable directories are skipped.
func Match(root string, extensions []string) []string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	fsys := os.DirFS(abs)

	paths := []string{}
	for _, ext := range extensions {
		pattern := "**/*." + ext
		if !doublestar.ValidatePattern(pattern) {
			panic("source: invalid glob pattern " + pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, rel := range matches {
			paths = append(paths, filepath.Join(abs, filepath.FromSlash(rel)))
		}
	}
	return paths
}
