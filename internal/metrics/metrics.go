package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry counts pipeline activity. The zero value is ready to use.
type Registry struct {
	relayReceived   atomic.Int64
	relayDropped    atomic.Int64
	staleDiscarded  atomic.Int64
	parseFailures   atomic.Int64
	watcherErrors   atomic.Int64
	watcherFailures atomic.Int64
	scans           atomic.Int64
	scanFiles       atomic.Int64
	scanNanos       atomic.Int64
	changesets      sync.Map
	busPublished    sync.Map
	busDropped      sync.Map
	busSubscribers  sync.Map
}

// Snapshot is a point-in-time copy of the scalar counters.
type Snapshot struct {
	RelayReceived   int64
	RelayDropped    int64
	StaleDiscarded  int64
	ParseFailures   int64
	WatcherErrors   int64
	WatcherFailures int64
	Scans           int64
	ScanFiles       int64
	Changesets      map[string]int64
}

var Default = &Registry{}

func (r *Registry) IncRelayReceived() {
	if r == nil {
		return
	}
	r.relayReceived.Add(1)
}

func (r *Registry) IncRelayDropped() {
	if r == nil {
		return
	}
	r.relayDropped.Add(1)
}

// IncStaleDiscarded counts results dropped because a newer session replaced
// the one that produced them.
func (r *Registry) IncStaleDiscarded() {
	if r == nil {
		return
	}
	r.staleDiscarded.Add(1)
}

func (r *Registry) IncParseFailure() {
	if r == nil {
		return
	}
	r.parseFailures.Add(1)
}

func (r *Registry) IncWatcherError() {
	if r == nil {
		return
	}
	r.watcherErrors.Add(1)
}

func (r *Registry) IncWatcherFailure() {
	if r == nil {
		return
	}
	r.watcherFailures.Add(1)
}

func (r *Registry) IncChangeset(kind string) {
	if r == nil {
		return
	}
	counter(&r.changesets, labelOrUnknown(kind)).Add(1)
}

func (r *Registry) RecordScan(files int, duration time.Duration) {
	if r == nil {
		return
	}
	r.scans.Add(1)
	r.scanFiles.Add(int64(files))
	r.scanNanos.Add(duration.Nanoseconds())
}

func (r *Registry) IncEventPublished(bus, eventType string) {
	if r == nil {
		return
	}
	counter(&r.busPublished, busKey(bus, eventType)).Add(1)
}

func (r *Registry) IncEventDropped(bus, eventType string) {
	if r == nil {
		return
	}
	counter(&r.busDropped, busKey(bus, eventType)).Add(1)
}

func (r *Registry) SetEventSubscriberCount(bus string, count int) {
	if r == nil {
		return
	}
	counter(&r.busSubscribers, labelOrUnknown(bus)).Store(int64(count))
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	changesets := make(map[string]int64)
	r.changesets.Range(func(key, value any) bool {
		changesets[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return Snapshot{
		RelayReceived:   r.relayReceived.Load(),
		RelayDropped:    r.relayDropped.Load(),
		StaleDiscarded:  r.staleDiscarded.Load(),
		ParseFailures:   r.parseFailures.Load(),
		WatcherErrors:   r.watcherErrors.Load(),
		WatcherFailures: r.watcherFailures.Load(),
		Scans:           r.scans.Load(),
		ScanFiles:       r.scanFiles.Load(),
		Changesets:      changesets,
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "incgraph_relay_received_total", "Raw events accepted by the relay channel", r.relayReceived.Load())
	writeCounter(writer, "incgraph_relay_dropped_total", "Raw events dropped because the relay channel was full", r.relayDropped.Load())
	writeCounter(writer, "incgraph_stale_discarded_total", "Results discarded from superseded sessions", r.staleDiscarded.Load())
	writeCounter(writer, "incgraph_parse_failures_total", "Files that could not be read for metadata", r.parseFailures.Load())
	writeCounter(writer, "incgraph_watcher_errors_total", "Errors reported by the filesystem watcher", r.watcherErrors.Load())
	writeCounter(writer, "incgraph_watcher_failures_total", "Sessions that started without live updates", r.watcherFailures.Load())

	writeHelp(writer, "incgraph_scan_duration_seconds", "Initial scan duration in seconds")
	fmt.Fprintln(writer, "# TYPE incgraph_scan_duration_seconds summary")
	fmt.Fprintf(writer, "incgraph_scan_duration_seconds_sum %.6f\n", float64(r.scanNanos.Load())/float64(time.Second))
	fmt.Fprintf(writer, "incgraph_scan_duration_seconds_count %d\n", r.scans.Load())
	writeCounter(writer, "incgraph_scan_files_total", "Files included in initial batches", r.scanFiles.Load())

	writeLabeled(writer, "incgraph_changesets_total", "Changesets emitted to the UI", "counter", &r.changesets, func(key string) string {
		return "kind=" + formatLabel(key)
	})
	writeLabeled(writer, "incgraph_bus_published_total", "Events published per bus", "counter", &r.busPublished, busLabels)
	writeLabeled(writer, "incgraph_bus_dropped_total", "Events dropped per bus", "counter", &r.busDropped, busLabels)
	writeLabeled(writer, "incgraph_bus_subscribers", "Active subscribers per bus", "gauge", &r.busSubscribers, func(key string) string {
		return "bus=" + formatLabel(key)
	})
	return nil
}

func counter(values *sync.Map, key string) *atomic.Int64 {
	value, _ := values.LoadOrStore(key, &atomic.Int64{})
	return value.(*atomic.Int64)
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, value any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

func busKey(bus, eventType string) string {
	return labelOrUnknown(bus) + "\x00" + labelOrUnknown(eventType)
}

func busLabels(key string) string {
	bus, eventType, _ := strings.Cut(key, "\x00")
	return "bus=" + formatLabel(bus) + ",type=" + formatLabel(eventType)
}

func labelOrUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func writeLabeled(writer io.Writer, metric, help, kind string, values *sync.Map, labels func(string) string) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s %s\n", metric, kind)
	for _, key := range sortedKeys(values) {
		fmt.Fprintf(writer, "%s{%s} %d\n", metric, labels(key), counter(values, key).Load())
	}
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	return "\"" + escaped + "\""
}
