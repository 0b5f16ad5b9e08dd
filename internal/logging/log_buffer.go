package logging

import (
	"sync"

	"incgraph/internal/buffer"
)

// LogBuffer retains the most recent entries for the logs API.
type LogBuffer struct {
	mu      sync.Mutex
	entries *buffer.Ring[LogEntry]
}

func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{
		entries: buffer.NewRing[LogEntry](size),
	}
}

func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries.Add(entry)
}

func (b *LogBuffer) List() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.entries.List()
}

// Tail returns up to limit entries at or above minLevel, oldest first.
func (b *LogBuffer) Tail(limit int, minLevel Level) []LogEntry {
	b.mu.Lock()
	entries := b.entries.List()
	b.mu.Unlock()

	filtered := entries[:0]
	for _, entry := range entries {
		if levelRank(entry.Level) >= levelRank(minLevel) {
			filtered = append(filtered, entry)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}
