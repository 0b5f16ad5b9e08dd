package changeset

import "incgraph/internal/fsutil"

// ParseFunc reads a file's metadata; ok is false when the file is unreadable.
type ParseFunc func(path string) (FileMetadata, bool)

// Classifier maps raw events onto changesets.
type Classifier struct {
	// Recognized gates events by the primary path's extension.
	Recognized func(path string) bool
	Parse      ParseFunc
}

// Classify returns exactly one changeset for event. It only touches the
// filesystem for creates and content changes.
//
// Renames: a single path is a removal. An [old, new] pair is Renamed when the
// new path is also recognized, and a removal of old when it is not.
func (c Classifier) Classify(event RawEvent) Changeset {
	primary := event.Primary()
	if primary == "" || c.Recognized == nil || !c.Recognized(primary) {
		return NoEvent()
	}

	switch event.Kind {
	case EventCreate, EventModifyData:
		return c.reparse(primary)
	case EventRemove:
		return Removed(fsutil.NormalizeKey(primary))
	case EventModifyName:
		if len(event.Paths) < 2 {
			return Removed(fsutil.NormalizeKey(primary))
		}
		target := event.Paths[1]
		if !c.Recognized(target) {
			return Removed(fsutil.NormalizeKey(primary))
		}
		return Renamed(fsutil.NormalizeKey(primary), fsutil.NormalizeKey(target))
	default:
		return NoEvent()
	}
}

func (c Classifier) reparse(path string) Changeset {
	if c.Parse == nil {
		return NoEvent()
	}
	meta, ok := c.Parse(path)
	if !ok {
		return NoEvent()
	}
	return Modified(meta)
}
