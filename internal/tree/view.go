// Package tree keeps a bounded, in-memory view of the tracked files by
// replaying the changesets emitted to the UI.
package tree

import (
	"slices"
	"sync"
	"sync/atomic"

	"incgraph/internal/changeset"
	"incgraph/internal/notify"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 65536

// View implements notify.Sink. Entries beyond its capacity are evicted least
// recently touched first.
type View struct {
	mu        sync.RWMutex
	cache     *lru.Cache[string, changeset.FileMetadata]
	size      int
	evictions atomic.Int64
	resets    atomic.Int64
}

func New(size int) (*View, error) {
	if size <= 0 {
		size = DefaultSize
	}
	view := &View{size: size}
	cache, err := lru.New[string, changeset.FileMetadata](size)
	if err != nil {
		return nil, err
	}
	view.cache = cache
	return view, nil
}

func (v *View) Emit(name string, payload any) {
	if v == nil || name != notify.EventChangeset {
		return
	}
	batch, ok := payload.([]changeset.Changeset)
	if !ok {
		return
	}
	v.Apply(batch)
}

// Apply replays batch. An empty batch, or one led by an Added entry, is a
// fresh initial scan and replaces the whole view.
func (v *View) Apply(batch []changeset.Changeset) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(batch) == 0 || batch[0].Kind == changeset.KindAdded {
		v.cache.Purge()
		v.resets.Add(1)
	}
	for _, change := range batch {
		switch change.Kind {
		case changeset.KindAdded, changeset.KindModified:
			v.add(change.Meta.Key, cloneMeta(change.Meta))
		case changeset.KindRemoved:
			v.cache.Remove(change.Meta.Key)
		case changeset.KindRenamed:
			meta, ok := v.cache.Peek(change.OldPath)
			v.cache.Remove(change.OldPath)
			if !ok {
				meta.Includes = []string{}
			}
			meta.Key = change.NewPath
			v.add(change.NewPath, meta)
		}
	}
}

func (v *View) add(key string, meta changeset.FileMetadata) {
	if evicted := v.cache.Add(key, meta); evicted {
		v.evictions.Add(1)
	}
}

func (v *View) Get(key string) (changeset.FileMetadata, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	meta, ok := v.cache.Peek(key)
	if !ok {
		return changeset.FileMetadata{}, false
	}
	return cloneMeta(meta), true
}

func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cache.Len()
}

// Snapshot returns every entry ordered by key.
func (v *View) Snapshot() []changeset.FileMetadata {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := v.cache.Keys()
	slices.Sort(keys)
	entries := make([]changeset.FileMetadata, 0, len(keys))
	for _, key := range keys {
		if meta, ok := v.cache.Peek(key); ok {
			entries = append(entries, cloneMeta(meta))
		}
	}
	return entries
}

type Stats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Evictions int64 `json:"evictions"`
	Resets    int64 `json:"resets"`
}

func (v *View) Stats() Stats {
	return Stats{
		Entries:   v.Len(),
		Capacity:  v.size,
		Evictions: v.evictions.Load(),
		Resets:    v.resets.Load(),
	}
}

func cloneMeta(meta changeset.FileMetadata) changeset.FileMetadata {
	includes := make([]string, len(meta.Includes))
	copy(includes, meta.Includes)
	return changeset.FileMetadata{Key: meta.Key, Includes: includes}
}
