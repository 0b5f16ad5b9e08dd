package tree

import (
	"testing"

	"incgraph/internal/changeset"
	"incgraph/internal/notify"

	"github.com/google/go-cmp/cmp"
)

func meta(key string, includes ...string) changeset.FileMetadata {
	if includes == nil {
		includes = []string{}
	}
	return changeset.FileMetadata{Key: key, Includes: includes}
}

func newView(t *testing.T, size int) *View {
	t.Helper()
	view, err := New(size)
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	return view
}

func TestViewReplaysChangesets(t *testing.T) {
	view := newView(t, 16)

	view.Emit(notify.EventChangeset, []changeset.Changeset{
		changeset.Added(meta("b.h")),
		changeset.Added(meta("a.cpp", "b.h")),
	})
	view.Emit(notify.EventChangeset, []changeset.Changeset{changeset.Modified(meta("c.h"))})
	view.Emit(notify.EventChangeset, []changeset.Changeset{changeset.Renamed("a.cpp", "main.cpp")})
	view.Emit(notify.EventChangeset, []changeset.Changeset{changeset.Removed("b.h")})

	want := []changeset.FileMetadata{meta("c.h"), meta("main.cpp", "b.h")}
	if diff := cmp.Diff(want, view.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestViewResetsOnInitialBatch(t *testing.T) {
	view := newView(t, 16)
	view.Apply([]changeset.Changeset{changeset.Added(meta("old.c"))})
	view.Apply([]changeset.Changeset{changeset.Added(meta("new.c"))})

	if _, ok := view.Get("old.c"); ok {
		t.Fatal("expected old root entries to be dropped")
	}
	if _, ok := view.Get("new.c"); !ok {
		t.Fatal("expected new entry")
	}

	view.Apply([]changeset.Changeset{})
	if view.Len() != 0 {
		t.Fatalf("expected empty view, got %d", view.Len())
	}
	if stats := view.Stats(); stats.Resets != 3 {
		t.Fatalf("expected 3 resets, got %d", stats.Resets)
	}
}

func TestViewIgnoresOtherEvents(t *testing.T) {
	view := newView(t, 16)
	view.Emit(notify.EventNotification, notify.Info("x", "y"))
	view.Emit(notify.EventChangeset, "not a batch")
	if view.Len() != 0 {
		t.Fatalf("expected empty view, got %d", view.Len())
	}
}

func TestViewRenameUnknownSource(t *testing.T) {
	view := newView(t, 16)
	view.Apply([]changeset.Changeset{changeset.Renamed("ghost.h", "real.h")})

	got, ok := view.Get("real.h")
	if !ok {
		t.Fatal("expected renamed entry")
	}
	if diff := cmp.Diff(meta("real.h"), got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestViewEvictsBeyondCapacity(t *testing.T) {
	view := newView(t, 2)
	view.Apply([]changeset.Changeset{
		changeset.Added(meta("a.c")),
		changeset.Added(meta("b.c")),
		changeset.Added(meta("c.c")),
	})

	if view.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", view.Len())
	}
	if _, ok := view.Get("a.c"); ok {
		t.Fatal("expected oldest entry evicted")
	}
	if stats := view.Stats(); stats.Evictions != 1 || stats.Capacity != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestViewGetReturnsCopy(t *testing.T) {
	view := newView(t, 4)
	view.Apply([]changeset.Changeset{changeset.Added(meta("a.c", "x.h"))})

	got, _ := view.Get("a.c")
	got.Includes[0] = "mutated.h"

	again, _ := view.Get("a.c")
	if again.Includes[0] != "x.h" {
		t.Fatalf("view mutated through Get: %v", again.Includes)
	}
}
