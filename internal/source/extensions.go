package source

import (
	"path"
	"strings"

	"incgraph/internal/fsutil"
)

var (
	SourceExtensions = []string{"c", "cpp", "cxx", "cc", "c++"}
	HeaderExtensions = []string{"h", "hpp", "hh", "h++"}
)

// Extensions is the full recognized set: sources first, then headers.
func Extensions() []string {
	all := make([]string, 0, len(SourceExtensions)+len(HeaderExtensions))
	all = append(all, SourceExtensions...)
	return append(all, HeaderExtensions...)
}

var recognized = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, ext := range Extensions() {
		set[ext] = struct{}{}
	}
	return set
}()

// Recognized reports whether p ends in one of the tracked extensions.
// Matching is case-sensitive, like the enumerator.
func Recognized(p string) bool {
	ext := path.Ext(fsutil.NormalizeKey(p))
	if ext == "" || ext == "." {
		return false
	}
	_, ok := recognized[strings.TrimPrefix(ext, ".")]
	return ok
}
