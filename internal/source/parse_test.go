package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"incgraph/internal/changeset"
	"incgraph/internal/fsutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseCollectsIncludesInLineOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cpp")
	writeFile(t, path, strings.Join([]string{
		`#include "b.h"`,
		`#include <vector>`,
		`  #  include   "util/strings.hpp"`,
		`int x = 1; // #include "not_this.h"`,
		`#include "b.h"`,
		`#include "first.h" #include "second.h"`,
		`#define INCLUDE "nope.h"`,
		`#include<map>`,
	}, "\n"))

	got, ok := Parse(path)
	if !ok {
		t.Fatal("expected metadata for readable file")
	}
	want := changeset.FileMetadata{
		Key:      fsutil.NormalizeKey(path),
		Includes: []string{"b.h", "vector", "util/strings.hpp", "b.h", "first.h", "map"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}
}

func TestParseEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.h")
	writeFile(t, path, "")

	got, ok := Parse(path)
	if !ok {
		t.Fatal("expected metadata for empty file")
	}
	if got.Includes == nil || len(got.Includes) != 0 {
		t.Fatalf("expected empty includes, got %#v", got.Includes)
	}
}

func TestParseLastLineWithoutNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.hpp")
	writeFile(t, path, "// header\r\n#include \"e.h\"")

	got, ok := Parse(path)
	if !ok {
		t.Fatal("expected metadata")
	}
	if diff := cmp.Diff([]string{"e.h"}, got.Includes); diff != "" {
		t.Fatalf("unexpected includes (-want +got):\n%s", diff)
	}
}

func TestParseUnreadableReturnsNothing(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Parse(filepath.Join(dir, "missing.cpp")); ok {
		t.Fatal("expected no metadata for missing file")
	}
	if _, ok := Parse(dir); ok {
		t.Fatal("expected no metadata for a directory")
	}
}

func TestParseLongLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.c")
	writeFile(t, path, strings.Repeat("x", 200_000)+"\n#include \"tail.h\"\n")

	got, ok := Parse(path)
	if !ok {
		t.Fatal("expected metadata")
	}
	if diff := cmp.Diff([]string{"tail.h"}, got.Includes); diff != "" {
		t.Fatalf("unexpected includes (-want +got):\n%s", diff)
	}
}
