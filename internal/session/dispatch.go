package session

import (
	"context"
	"strconv"

	"incgraph/internal/changeset"
	"incgraph/internal/watcher"
)

// callback runs on the watcher's forwarder goroutine. It never blocks: when
// the relay is full the event is dropped. Directory events never reach the
// classifier; a directory named like a header is still a directory.
func (s *Session) callback(gen uint64) func(watcher.Event) {
	return func(event watcher.Event) {
		if event.Dir {
			return
		}
		s.registry.IncRelayReceived()
		item := relayed{
			generation: gen,
			event: changeset.RawEvent{
				Kind:  changeset.FromOp(event.Op),
				Paths: []string{event.Path},
			},
		}
		select {
		case s.relay <- item:
		default:
			s.registry.IncRelayDropped()
			s.logger.Debug("relay full, event dropped", map[string]string{
				"path": event.Path,
				"op":   event.Op.String(),
			})
		}
	}
}

// Run drains the relay until ctx is done. Each event is classified, and any
// re-parse finished, before the next one is taken.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-s.relay:
			s.dispatch(item)
		}
	}
}

func (s *Session) dispatch(item relayed) {
	if s.generation.Load() != item.generation {
		s.registry.IncStaleDiscarded()
		return
	}
	change := s.classifier.Classify(item.event)
	if change.IsNoEvent() {
		return
	}
	if !s.emitIfCurrent(item.generation, []changeset.Changeset{change}) {
		return
	}
	s.logger.Debug("changeset dispatched", map[string]string{
		"kind":       string(change.Kind),
		"key":        change.Key(),
		"generation": strconv.FormatUint(item.generation, 10),
	})
}

// Pending reports events waiting in the relay.
func (s *Session) Pending() int {
	return len(s.relay)
}
