package watcher

import (
	"sync"
	"sync/atomic"
	"time"

	"incgraph/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Event represents a single filesystem change.
type Event struct {
	Path string
	Op   fsnotify.Op
	// Dir is set when Path is known to be a directory: a created directory,
	// or a removed or renamed one that was being watched.
	Dir       bool
	Timestamp time.Time
}

// Options controls watcher behavior.
type Options struct {
	Logger *logging.Logger
	// MaxWatches bounds the number of directories subscribed.
	MaxWatches int
	// Skip hides a path from both subscription and delivery.
	Skip func(path string) bool
	// ErrorHandler receives errors reported by the OS backend.
	ErrorHandler func(error)
}

// Metrics reports current watcher stats.
type Metrics struct {
	ActiveWatches   int
	EventsDelivered uint64
	Errors          uint64
}

// Watcher owns one OS subscription rooted at a directory.
type Watcher struct {
	watcher      *fsnotify.Watcher
	mutex        sync.Mutex
	root         string
	callback     func(Event)
	dirs         map[string]struct{}
	files        map[string]struct{}
	done         chan struct{}
	forwarder    sync.WaitGroup
	closed       bool
	logger       *logging.Logger
	maxWatches   int
	skip         func(string) bool
	errorHandler func(error)

	eventsDelivered atomic.Uint64
	errorCount      atomic.Uint64
}
