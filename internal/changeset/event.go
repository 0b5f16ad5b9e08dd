package changeset

import "github.com/fsnotify/fsnotify"

// EventKind is the coarse taxonomy the classifier understands.
type EventKind int

const (
	EventOther EventKind = iota
	EventCreate
	EventRemove
	EventModifyName
	EventModifyData
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventRemove:
		return "remove"
	case EventModifyName:
		return "modify_name"
	case EventModifyData:
		return "modify_data"
	default:
		return "other"
	}
}

// RawEvent is a filesystem notification before classification. Paths[0] is
// the primary affected path; a rename may carry [old, new].
type RawEvent struct {
	Kind  EventKind
	Paths []string
}

func (e RawEvent) Primary() string {
	if len(e.Paths) == 0 {
		return ""
	}
	return e.Paths[0]
}

// FromOp maps an fsnotify operation onto an EventKind. When several bits are
// set the most destructive wins.
func FromOp(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Remove):
		return EventRemove
	case op.Has(fsnotify.Rename):
		return EventModifyName
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Write):
		return EventModifyData
	default:
		return EventOther
	}
}
