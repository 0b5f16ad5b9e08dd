package session

import (
	"incgraph/internal/fsutil"
	"incgraph/internal/source"
)

// pathFilter applies the ignore list to absolute paths under root.
type pathFilter struct {
	root   string
	ignore source.IgnoreList
}

func newPathFilter(root string, ignore source.IgnoreList) pathFilter {
	return pathFilter{root: root, ignore: ignore}
}

func (f pathFilter) skip(path string) bool {
	if len(f.ignore) == 0 {
		return false
	}
	rel, err := fsutil.RelSlash(f.root, path)
	if err != nil {
		return false
	}
	return f.ignore.Ignored(rel)
}
