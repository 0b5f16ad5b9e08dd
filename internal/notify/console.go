package notify

import (
	"fmt"
	"io"
	"sync"

	"incgraph/internal/changeset"

	"github.com/fatih/color"
)

// ConsoleSink renders emissions as one line per change for terminal use.
type ConsoleSink struct {
	mu      sync.Mutex
	out     io.Writer
	added   *color.Color
	changed *color.Color
	removed *color.Color
	renamed *color.Color
	info    *color.Color
	warning *color.Color
	failure *color.Color
}

func NewConsoleSink(out io.Writer, useColor bool) *ConsoleSink {
	sink := &ConsoleSink{
		out:     out,
		added:   color.New(color.FgGreen),
		changed: color.New(color.FgCyan),
		removed: color.New(color.FgRed),
		renamed: color.New(color.FgMagenta),
		info:    color.New(color.FgBlue, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{sink.added, sink.changed, sink.removed, sink.renamed, sink.info, sink.warning, sink.failure} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return sink
}

func (sink *ConsoleSink) Emit(name string, payload any) {
	if sink == nil || sink.out == nil {
		return
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()

	switch value := payload.(type) {
	case []changeset.Changeset:
		if len(value) == 0 || (len(value) > 1 && value[0].Kind == changeset.KindAdded) {
			sink.added.Fprintf(sink.out, "+ %d files tracked\n", len(value))
			return
		}
		for _, change := range value {
			sink.writeChange(change)
		}
	case UINotification:
		sink.writeNotification(value)
	default:
		fmt.Fprintf(sink.out, "%s %v\n", name, payload)
	}
}

func (sink *ConsoleSink) writeChange(change changeset.Changeset) {
	switch change.Kind {
	case changeset.KindAdded:
		sink.added.Fprintf(sink.out, "+ %s (%d includes)\n", change.Meta.Key, len(change.Meta.Includes))
	case changeset.KindModified:
		sink.changed.Fprintf(sink.out, "~ %s (%d includes)\n", change.Meta.Key, len(change.Meta.Includes))
	case changeset.KindRemoved:
		sink.removed.Fprintf(sink.out, "- %s\n", change.Meta.Key)
	case changeset.KindRenamed:
		sink.renamed.Fprintf(sink.out, "> %s -> %s\n", change.OldPath, change.NewPath)
	}
}

func (sink *ConsoleSink) writeNotification(notification UINotification) {
	style := sink.info
	switch notification.Type {
	case LevelWarning:
		style = sink.warning
	case LevelError:
		style = sink.failure
	}
	style.Fprintf(sink.out, "[%s] %s: %s\n", notification.Type, notification.Title, notification.Message)
}
