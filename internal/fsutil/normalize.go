package fsutil

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeKey returns the forward-slash identity of a file path. Backslashes
// are rewritten on every host so keys compare equal across platforms.
func NormalizeKey(pathValue string) string {
	return strings.ReplaceAll(filepath.ToSlash(pathValue), `\`, "/")
}

// RelSlash returns target relative to root in slash form. Paths outside root
// are rejected.
func RelSlash(root, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return "", err
	}
	rel = NormalizeKey(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q is outside %q", target, root)
	}
	return path.Clean(rel), nil
}

// AbsRoot resolves root to a cleaned absolute path.
func AbsRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
