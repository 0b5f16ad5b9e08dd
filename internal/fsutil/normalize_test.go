package fsutil

import (
	"path/filepath"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "slash", input: "/proj/a.cpp", want: "/proj/a.cpp"},
		{name: "backslash", input: `C:\proj\src\a.cpp`, want: "C:/proj/src/a.cpp"},
		{name: "mixed", input: `/proj\inc/b.h`, want: "/proj/inc/b.h"},
		{name: "empty", input: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeKey(tc.input)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if again := NormalizeKey(got); again != got {
				t.Fatalf("normalization not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeKeyEquivalentConventions(t *testing.T) {
	if NormalizeKey(`/proj\a.cpp`) != NormalizeKey("/proj/a.cpp") {
		t.Fatal("expected equivalent paths to share a key")
	}
}

func TestRelSlash(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj")

	rel, err := RelSlash(root, filepath.Join(root, "src", "a.cpp"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel != "src/a.cpp" {
		t.Fatalf("expected src/a.cpp, got %q", rel)
	}

	if _, err := RelSlash(root, filepath.Join(string(filepath.Separator), "other", "b.h")); err == nil {
		t.Fatal("expected error for path outside root")
	}
}

func TestAbsRootRejectsEmpty(t *testing.T) {
	if _, err := AbsRoot("  "); err == nil {
		t.Fatal("expected error for blank root")
	}
	root := t.TempDir()
	got, err := AbsRoot(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Clean(root) {
		t.Fatalf("expected %q, got %q", root, got)
	}
}
