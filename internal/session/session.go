// Package session binds a watched root to the UI sink. A Session owns at most
// one active watcher, relays its events through a bounded channel and
// classifies them in receipt order on a single dispatcher goroutine.
package session

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"incgraph/internal/changeset"
	"incgraph/internal/fsutil"
	"incgraph/internal/logging"
	"incgraph/internal/metrics"
	"incgraph/internal/notify"
	"incgraph/internal/source"
	"incgraph/internal/watcher"
)

const DefaultRelayCapacity = 256

var (
	ErrClosed       = errors.New("session closed")
	ErrRootRequired = errors.New("root is required")
)

type Options struct {
	Sink     notify.Sink
	Logger   *logging.Logger
	Registry *metrics.Registry
	// RelayCapacity bounds events waiting for the dispatcher. Events arriving
	// while it is full are dropped.
	RelayCapacity int
	// ScanWorkers caps concurrent parses during the initial scan.
	ScanWorkers int
	MaxWatches  int
	Parse       changeset.ParseFunc
	Recognized  func(path string) bool
}

// Result describes a completed Init.
type Result struct {
	Generation uint64 `json:"generation"`
	Root       string `json:"root"`
	Files      int    `json:"files"`
	Watching   bool   `json:"watching"`
}

type relayed struct {
	generation uint64
	event      changeset.RawEvent
}

type Session struct {
	sink        notify.Sink
	logger      *logging.Logger
	registry    *metrics.Registry
	parse       changeset.ParseFunc
	classifier  changeset.Classifier
	scanWorkers int
	maxWatches  int

	relay      chan relayed
	generation atomic.Uint64

	// mu guards the watcher slot. It is held only to swap the slot, never
	// across parse work or a tree walk.
	mu     sync.Mutex
	active *watcher.Watcher
	root   string
	closed bool

	// emitMu orders the generation check with the emission it guards.
	emitMu sync.Mutex
}

func New(opts Options) *Session {
	capacity := opts.RelayCapacity
	if capacity <= 0 {
		capacity = DefaultRelayCapacity
	}
	workers := opts.ScanWorkers
	if workers <= 0 {
		workers = 4 * runtime.NumCPU()
	}
	registry := opts.Registry
	if registry == nil {
		registry = metrics.Default
	}
	logger := opts.Logger.Component("session")
	recognized := opts.Recognized
	if recognized == nil {
		recognized = source.Recognized
	}
	parse := opts.Parse
	if parse == nil {
		parse = source.Parser{Logger: logger}.Parse
	}

	s := &Session{
		sink:        opts.Sink,
		logger:      logger,
		registry:    registry,
		scanWorkers: workers,
		maxWatches:  opts.MaxWatches,
		relay:       make(chan relayed, capacity),
	}
	s.parse = func(path string) (changeset.FileMetadata, bool) {
		meta, ok := parse(path)
		if !ok {
			s.registry.IncParseFailure()
		}
		return meta, ok
	}
	s.classifier = changeset.Classifier{Recognized: recognized, Parse: s.parse}
	return s
}

// Init scans root, emits one Added batch, then replaces the active watcher
// with one bound to root. Files whose root-relative path matches ignore are
// neither reported nor watched. Watcher failure is reported to the sink and
// leaves the session without live updates; it is not returned.
func (s *Session) Init(ctx context.Context, root string, ignore []string) (Result, error) {
	abs, err := fsutil.AbsRoot(root)
	if err != nil {
		return Result{}, ErrRootRequired
	}
	if s.isClosed() {
		return Result{}, ErrClosed
	}
	gen := s.generation.Add(1)
	filter := newPathFilter(abs, source.NewIgnoreList(ignore))
	logger := s.logger.With(map[string]string{
		"root":       abs,
		"generation": strconv.FormatUint(gen, 10),
	})

	batch, err := s.scan(ctx, abs, filter, logger)
	if err != nil {
		return Result{}, err
	}
	result := Result{Generation: gen, Root: abs, Files: len(batch)}
	if !s.emitIfCurrent(gen, batch) {
		logger.Info("initial scan superseded", nil)
		return result, nil
	}

	previous, current, err := s.detach(gen, abs)
	if err != nil || !current {
		return result, err
	}
	if previous != nil {
		if err := previous.Close(); err != nil {
			logger.Warn("close previous watcher failed", map[string]string{"error": err.Error()})
		}
	}

	active, err := watcher.Watch(abs, s.callback(gen), watcher.Options{
		Logger:     s.logger,
		MaxWatches: s.maxWatches,
		Skip:       filter.skip,
		ErrorHandler: func(err error) {
			s.registry.IncWatcherError()
		},
	})
	if err != nil {
		if s.generation.Load() != gen {
			return result, nil
		}
		s.registry.IncWatcherFailure()
		logger.Warn("watcher unavailable", map[string]string{"error": err.Error()})
		notify.Notify(s.sink, notify.Warning("Live updates unavailable", "Could not watch "+abs+": "+err.Error()))
		return result, nil
	}
	current, err = s.install(gen, active)
	if err != nil || !current {
		_ = active.Close()
		return result, err
	}
	result.Watching = true
	logger.Info("session initialized", map[string]string{"files": strconv.Itoa(len(batch))})
	return result, nil
}

// detach empties the watcher slot for gen and returns what occupied it, so the
// old subscription is gone before the replacement walks the tree outside mu.
// current is false when a newer Init has started.
func (s *Session) detach(gen uint64, root string) (previous *watcher.Watcher, current bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	if s.generation.Load() != gen {
		return nil, false, nil
	}
	previous = s.active
	s.active = nil
	s.root = root
	return previous, true, nil
}

// install fills the slot unless the session closed or moved on meanwhile.
func (s *Session) install(gen uint64, active *watcher.Watcher) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.generation.Load() != gen {
		return false, nil
	}
	s.active = active
	return true, nil
}

// Close releases the active watcher. Init fails with ErrClosed afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.generation.Add(1)
	active := s.active
	s.active = nil
	if active == nil {
		return nil
	}
	return active.Close()
}

// Generation reports the identifier of the most recent Init.
func (s *Session) Generation() uint64 {
	return s.generation.Load()
}

// Root returns the root of the active watcher, or the last root whose watcher
// failed to start.
func (s *Session) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Watching reports whether live updates are active.
func (s *Session) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emitIfCurrent sends batch to the sink unless a newer Init has started.
func (s *Session) emitIfCurrent(gen uint64, batch []changeset.Changeset) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.generation.Load() != gen {
		s.registry.IncStaleDiscarded()
		return false
	}
	if s.sink != nil {
		s.sink.Emit(notify.EventChangeset, batch)
	}
	for _, change := range batch {
		s.registry.IncChangeset(string(change.Kind))
	}
	return true
}
