package source

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreList holds doublestar patterns matched against root-relative slash
// paths. A pattern that names a directory also hides everything below it.
type IgnoreList []string

// NewIgnoreList drops blank and malformed patterns.
func NewIgnoreList(patterns []string) IgnoreList {
	list := make(IgnoreList, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		pattern = strings.TrimSuffix(pattern, "/")
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			continue
		}
		list = append(list, pattern)
	}
	return list
}

func (list IgnoreList) Ignored(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, pattern := range list {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern+"/**", rel); ok {
			return true
		}
	}
	return false
}
