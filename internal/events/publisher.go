// Package events fans game events out to push transports.
package events

import (
	"context"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// Publisher delivers an event after the write it describes has been accepted.
// Delivery is best effort: implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, event *model.Event)
}

// Nop discards events
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, *model.Event) {}

// Multi publishes to every publisher in order
type Multi []Publisher

// Publish forwards the event to each publisher
func (m Multi) Publish(ctx context.Context, event *model.Event) {
	for _, p := range m {
		p.Publish(ctx, event)
	}
}

// Recorder keeps published events in memory
type Recorder struct {
	events chan *model.Event
}

// NewRecorder creates a Recorder holding up to size events
func NewRecorder(size int) *Recorder {
	return &Recorder{events: make(chan *model.Event, size)}
}

// Publish stores the event, dropping it if the buffer is full
func (r *Recorder) Publish(_ context.Context, event *model.Event) {
	select {
	case r.events <- event:
	default:
	}
}

// Drain returns the recorded events and empties the buffer
func (r *Recorder) Drain() []*model.Event {
	var out []*model.Event
	for {
		select {
		case e := <-r.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Types returns the types of the recorded events and empties the buffer
func (r *Recorder) Types() []model.EventType {
	var out []model.EventType
	for _, e := range r.Drain() {
		out = append(out, e.Type)
	}
	return out
}
