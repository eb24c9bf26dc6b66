// Package events delivers the events raised by a race to their consumers.
package events

import (
	"sync"

	"github.com/samber/lo"

	"github.com/mpapenbr/trackprogress/pkg/model"
)

// Sink receives the events of a race in the order they were raised.
type Sink interface {
	Publish(e model.Event)
}

type SinkFunc func(e model.Event)

func (f SinkFunc) Publish(e model.Event) { f(e) }

// Discard drops all events
var Discard Sink = SinkFunc(func(model.Event) {})

type multiSink []Sink

func (m multiSink) Publish(e model.Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Tee forwards each event to all given sinks.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

// Recorder keeps all published events in memory. Mainly used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func (r *Recorder) OfKind(kind model.EventKind) []model.Event {
	return lo.Filter(r.Events(), func(e model.Event, _ int) bool {
		return e.Kind() == kind
	})
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Channel is a sink writing to a buffered channel. Publish blocks if the
// buffer is full.
type Channel struct {
	ch chan model.Event
}

func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan model.Event, size)}
}

func (c *Channel) Publish(e model.Event) {
	c.ch <- e
}

func (c *Channel) C() <-chan model.Event {
	return c.ch
}

// Close must only be called once no more events are published.
func (c *Channel) Close() {
	close(c.ch)
}
