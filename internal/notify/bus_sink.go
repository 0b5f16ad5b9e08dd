package notify

import (
	"time"

	"incgraph/internal/event"
)

// BusSink publishes emissions on an event bus so any number of UI clients can
// subscribe. Slow clients miss messages; the pipeline never waits on them.
type BusSink struct {
	Bus *event.Bus[Message]
}

func NewBusSink(bus *event.Bus[Message]) *BusSink {
	return &BusSink{Bus: bus}
}

func (sink *BusSink) Emit(name string, payload any) {
	if sink == nil || sink.Bus == nil {
		return
	}
	sink.Bus.Publish(Message{Name: name, Payload: payload, OccurredAt: time.Now().UTC()})
}
