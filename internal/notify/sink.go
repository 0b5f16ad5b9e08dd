// Package notify is the boundary to the UI: named, fire-and-forget payloads
// with no acknowledgment.
package notify

import (
	"sync"
	"time"
)

const (
	// EventChangeset carries a []changeset.Changeset, even for one change.
	EventChangeset = "file-changeset"
	// EventNotification carries a UINotification.
	EventNotification = "ui-notify"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// UINotification is a user-visible message. Timeout is in seconds; nil keeps
// the message until dismissed.
type UINotification struct {
	Type    Level  `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Timeout *int   `json:"timeout,omitempty"`
}

func Info(title, message string) UINotification {
	return UINotification{Type: LevelInfo, Title: title, Message: message}
}

func Warning(title, message string) UINotification {
	return UINotification{Type: LevelWarning, Title: title, Message: message}
}

func Error(title, message string) UINotification {
	return UINotification{Type: LevelError, Title: title, Message: message}
}

// WithTimeout returns a copy that auto-dismisses after seconds.
func (n UINotification) WithTimeout(seconds int) UINotification {
	n.Timeout = &seconds
	return n
}

// Sink accepts (event name, payload) pairs. Emit must not block for long.
type Sink interface {
	Emit(name string, payload any)
}

// Message is one emitted pair as seen by bus subscribers.
type Message struct {
	Name       string    `json:"event"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"timestamp"`
}

func (m Message) Type() string {
	return m.Name
}

func (m Message) Timestamp() time.Time {
	return m.OccurredAt
}

// Notify sends a UINotification through sink.
func Notify(sink Sink, notification UINotification) {
	if sink == nil {
		return
	}
	sink.Emit(EventNotification, notification)
}

type multiSink []Sink

// Multi fans each emission out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	filtered := make(multiSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return filtered
}

func (sinks multiSink) Emit(name string, payload any) {
	for _, sink := range sinks {
		sink.Emit(name, payload)
	}
}

// MemorySink records every emission. Used in tests and diagnostics.
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
	signal   chan struct{}
}

func NewMemorySink() *MemorySink {
	return &MemorySink{signal: make(chan struct{}, 1)}
}

func (sink *MemorySink) Emit(name string, payload any) {
	if sink == nil {
		return
	}
	sink.mu.Lock()
	sink.messages = append(sink.messages, Message{Name: name, Payload: payload, OccurredAt: time.Now().UTC()})
	sink.mu.Unlock()
	select {
	case sink.signal <- struct{}{}:
	default:
	}
}

func (sink *MemorySink) Messages() []Message {
	if sink == nil {
		return nil
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	messages := make([]Message, len(sink.messages))
	copy(messages, sink.messages)
	return messages
}

// Named returns recorded payloads emitted under name.
func (sink *MemorySink) Named(name string) []any {
	var payloads []any
	for _, message := range sink.Messages() {
		if message.Name == name {
			payloads = append(payloads, message.Payload)
		}
	}
	return payloads
}

// WaitFor blocks until match accepts the recorded messages or timeout passes.
func (sink *MemorySink) WaitFor(timeout time.Duration, match func([]Message) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if match(sink.Messages()) {
			return true
		}
		select {
		case <-sink.signal:
		case <-deadline.C:
			return match(sink.Messages())
		}
	}
}
