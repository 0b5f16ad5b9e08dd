package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incgraph/internal/notify"

	"github.com/google/go-cmp/cmp"
)

func TestLoadCreatesDefaults(t *testing.T) {
	root := t.TempDir()
	sink := notify.NewMemorySink()
	store := &Store{Sink: sink}

	cfg, err := store.Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if strings.TrimSpace(string(data)) != "syntax: 1" {
		t.Fatalf("unexpected sidecar contents %q", data)
	}

	notes := sink.Named(notify.EventNotification)
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	note := notes[0].(notify.UINotification)
	if note.Type != notify.LevelInfo || note.Title != "Config created" {
		t.Fatalf("unexpected notification %+v", note)
	}
}

func TestLoadResetsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "syntax: [1\n"},
		{name: "unknown field", content: "syntax: 1\ncolour_scheme: dark\n"},
		{name: "old syntax", content: "syntax: 0\n"},
		{name: "empty", content: ""},
		{name: "bad ignore pattern", content: "syntax: 1\nignore_list:\n  - \"[\"\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, FileName)
			if err := os.WriteFile(path, []byte(test.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			sink := notify.NewMemorySink()
			store := &Store{Sink: sink}

			cfg, err := store.Load(root)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(Default(), cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
			notes := sink.Named(notify.EventNotification)
			if len(notes) != 1 || notes[0].(notify.UINotification).Type != notify.LevelWarning {
				t.Fatalf("expected one warning, got %+v", notes)
			}
			data, _ := os.ReadFile(path)
			if strings.TrimSpace(string(data)) != "syntax: 1" {
				t.Fatalf("expected sidecar reset, got %q", data)
			}
		})
	}
}

func TestLoadReadsExisting(t *testing.T) {
	root := t.TempDir()
	content := strings.Join([]string{
		"syntax: 1",
		"include_roots:",
		"  - include",
		"ignore_list:",
		"  - build",
		"  - \"**/*.generated.h\"",
		"groups:",
		"  - name: core",
		"    colour: \"#ff0000\"",
		"    path: src/core",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink := notify.NewMemorySink()
	store := &Store{Sink: sink}

	cfg, err := store.Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := ConfigTree{
		Syntax:       1,
		IncludeRoots: []string{"include"},
		IgnoreList:   []string{"build", "**/*.generated.h"},
		Groups:       []Group{{Name: "core", Colour: "#ff0000", Path: "src/core"}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if len(sink.Messages()) != 0 {
		t.Fatalf("expected no notifications, got %d", len(sink.Messages()))
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := &Store{}
	cfg := ConfigTree{Syntax: 1, IgnoreList: []string{"third_party"}}

	if err := store.Save(root, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the sidecar, found %d entries", len(entries))
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := &Store{}
	if err := store.Save(t.TempDir(), ConfigTree{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := store.Save(t.TempDir(), ConfigTree{Syntax: 1, Groups: []Group{{Path: "x"}}}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unnamed group, got %v", err)
	}
	if err := store.Save(" ", Default()); !errors.Is(err, ErrRootRequired) {
		t.Fatalf("expected ErrRootRequired, got %v", err)
	}
}
