package changeset

import (
	"encoding/json"
	"fmt"
)

// FileMetadata is the per-file record sent to the UI. Key is the normalized
// path and is the file's identity.
type FileMetadata struct {
	Key      string   `json:"key"`
	Includes []string `json:"includes"`
}

// MarshalJSON always encodes includes as an array, never null.
func (m FileMetadata) MarshalJSON() ([]byte, error) {
	includes := m.Includes
	if includes == nil {
		includes = []string{}
	}
	type wire FileMetadata
	return json.Marshal(wire{Key: m.Key, Includes: includes})
}

type Kind string

const (
	KindNoEvent  Kind = "no_event"
	KindRemoved  Kind = "removed"
	KindRenamed  Kind = "renamed"
	KindAdded    Kind = "added"
	KindModified Kind = "modified"
)

// Changeset is one unit of change to the tracked file set. Meta is set for
// Added, Modified and Removed; OldPath and NewPath for Renamed.
type Changeset struct {
	Kind    Kind
	Meta    FileMetadata
	OldPath string
	NewPath string
}

func NoEvent() Changeset {
	return Changeset{Kind: KindNoEvent}
}

func Added(meta FileMetadata) Changeset {
	return Changeset{Kind: KindAdded, Meta: meta}
}

func Modified(meta FileMetadata) Changeset {
	return Changeset{Kind: KindModified, Meta: meta}
}

// Removed never carries includes; the file is not re-read.
func Removed(key string) Changeset {
	return Changeset{Kind: KindRemoved, Meta: FileMetadata{Key: key, Includes: []string{}}}
}

func Renamed(oldPath, newPath string) Changeset {
	return Changeset{Kind: KindRenamed, OldPath: oldPath, NewPath: newPath}
}

func (c Changeset) IsNoEvent() bool {
	return c.Kind == "" || c.Kind == KindNoEvent
}

// Key returns the identity the change applies to; for renames, the new path.
func (c Changeset) Key() string {
	if c.Kind == KindRenamed {
		return c.NewPath
	}
	return c.Meta.Key
}

// MarshalJSON encodes the externally tagged form used on the UI boundary:
// "no_event", {"added": {...}}, {"renamed": ["old", "new"]}.
func (c Changeset) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case "", KindNoEvent:
		return json.Marshal(KindNoEvent)
	case KindAdded, KindModified, KindRemoved:
		return json.Marshal(map[Kind]FileMetadata{c.Kind: c.Meta})
	case KindRenamed:
		return json.Marshal(map[Kind][2]string{KindRenamed: {c.OldPath, c.NewPath}})
	default:
		return nil, fmt.Errorf("unknown changeset kind %q", c.Kind)
	}
}

func (c *Changeset) UnmarshalJSON(data []byte) error {
	var tag Kind
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != KindNoEvent {
			return fmt.Errorf("unknown changeset tag %q", tag)
		}
		*c = NoEvent()
		return nil
	}

	var tagged map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("changeset must have exactly one tag, got %d", len(tagged))
	}
	for kind, body := range tagged {
		switch kind {
		case KindAdded, KindModified, KindRemoved:
			var meta FileMetadata
			if err := json.Unmarshal(body, &meta); err != nil {
				return err
			}
			if meta.Includes == nil {
				meta.Includes = []string{}
			}
			*c = Changeset{Kind: kind, Meta: meta}
		case KindRenamed:
			var pair [2]string
			if err := json.Unmarshal(body, &pair); err != nil {
				return err
			}
			*c = Renamed(pair[0], pair[1])
		default:
			return fmt.Errorf("unknown changeset tag %q", kind)
		}
	}
	return nil
}
