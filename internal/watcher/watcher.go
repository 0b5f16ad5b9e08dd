package watcher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultMaxWatches = 8192

var (
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
	ErrNotDirectory       = errors.New("watch root is not a directory")
)

// Watch subscribes to root and every directory below it. callback is invoked
// from the forwarder goroutine for each event until Close returns.
func Watch(root string, callback func(Event), options Options) (*Watcher, error) {
	if root == "" {
		return nil, errors.New("root is required")
	}
	if callback == nil {
		return nil, errors.New("callback is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	instance := &Watcher{
		watcher:      source,
		root:         root,
		callback:     callback,
		dirs:         make(map[string]struct{}),
		files:        make(map[string]struct{}),
		done:         make(chan struct{}),
		logger:       options.Logger.Component("watcher"),
		maxWatches:   maxWatches,
		skip:         options.Skip,
		errorHandler: options.ErrorHandler,
	}

	files, err := instance.addTree(root)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	instance.trackFiles(files)

	instance.forwarder.Add(1)
	go instance.forward()
	return instance, nil
}

// Close releases the OS subscription. No callback runs after Close returns.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.dirs = make(map[string]struct{})
	watcher.files = make(map[string]struct{})
	watcher.mutex.Unlock()

	close(watcher.done)
	err := watcher.watcher.Close()
	watcher.forwarder.Wait()
	return err
}

// Root returns the directory the watcher was created for.
func (watcher *Watcher) Root() string {
	if watcher == nil {
		return ""
	}
	return watcher.root
}

func (watcher *Watcher) forward() {
	defer watcher.forwarder.Done()
	source := watcher.watcher
	for {
		select {
		case event, ok := <-source.Events:
			if !ok {
				return
			}
			watcher.handleEvent(event)
		case err, ok := <-source.Errors:
			if !ok {
				return
			}
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	if watcher.isClosed() {
		return
	}
	if watcher.skipped(event.Name) {
		return
	}

	now := time.Now().UTC()
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		wasDir, orphaned := watcher.forgetTree(event.Name)
		watcher.deliver(Event{Path: event.Name, Op: event.Op, Dir: wasDir, Timestamp: now})
		// The OS reports a moved directory by its own path only.
		for _, file := range orphaned {
			watcher.deliver(Event{Path: file, Op: fsnotify.Remove, Timestamp: now})
		}
		return
	}

	if !event.Op.Has(fsnotify.Create) {
		watcher.deliver(Event{Path: event.Name, Op: event.Op, Timestamp: now})
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		if err == nil && info.Mode().IsRegular() {
			watcher.trackFiles([]string{event.Name})
		}
		watcher.deliver(Event{Path: event.Name, Op: event.Op, Timestamp: now})
		return
	}

	watcher.deliver(Event{Path: event.Name, Op: event.Op, Dir: true, Timestamp: now})
	files, err := watcher.addTree(event.Name)
	if err != nil {
		watcher.logWarn("watch new directory failed", map[string]string{
			"path":  event.Name,
			"error": err.Error(),
		})
	}
	watcher.trackFiles(files)
	// Files written before the watch landed would otherwise be missed.
	for _, file := range files {
		watcher.deliver(Event{Path: file, Op: fsnotify.Create, Timestamp: time.Now().UTC()})
	}
}

func (watcher *Watcher) deliver(event Event) {
	if watcher.isClosed() {
		return
	}
	watcher.callback(event)
	watcher.eventsDelivered.Add(1)
}

func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	watcher.errorCount.Add(1)
	watcher.logWarn("watcher error", map[string]string{
		"error": err.Error(),
	})
	if watcher.errorHandler != nil {
		watcher.errorHandler(err)
	}
}

func (watcher *Watcher) isClosed() bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.closed
}

func (watcher *Watcher) skipped(path string) bool {
	return watcher.skip != nil && path != watcher.root && watcher.skip(path)
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	watcher.logger.Warn(message, fields)
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	watcher.logger.Debug(message, map[string]string{
		"path":           path,
		"active_watches": strconv.Itoa(activeCount),
	})
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.mutex.Lock()
	active := len(watcher.dirs)
	watcher.mutex.Unlock()
	return Metrics{
		ActiveWatches:   active,
		EventsDelivered: watcher.eventsDelivered.Load(),
		Errors:          watcher.errorCount.Load(),
	}
}
