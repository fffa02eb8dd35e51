// Package broadcast is an in-process eventstream publisher that fans story
// events out to live subscribers, such as API clients following a story
// over SSE.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/logger"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Broker delivers published events to the subscribers of their story.
// A subscriber whose buffer is full misses the event; the next event
// carries a full snapshot, so nothing is lost for good.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	buffer int
	logger *slog.Logger
}

type subscription struct {
	ch chan *eventstream.StoryEvent
}

// Option configures a Broker.
type Option func(*Broker)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: DefaultBuffer,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.Component(b.logger, "broadcast")
	return b
}

// Subscribe returns a channel of events for storyID and a cancel function
// that unsubscribes and closes the channel. The channel is also closed
// when the broker closes.
func (b *Broker) Subscribe(storyID string) (<-chan *eventstream.StoryEvent, func()) {
	sub := &subscription{ch: make(chan *eventstream.StoryEvent, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	set, ok := b.subs[storyID]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[storyID] = set
	}
	set[sub] = struct{}{}

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.remove(storyID, sub) })
	}
}

func (b *Broker) remove(storyID string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[storyID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, storyID)
	}
	close(sub.ch)
}

// Subscribers reports how many subscribers follow storyID.
func (b *Broker) Subscribers(storyID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[storyID])
}

// PublishStoryEvent delivers event to every subscriber of its story
// without blocking.
func (b *Broker) PublishStoryEvent(_ context.Context, event *eventstream.StoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return eventstream.ErrClosed
	}

	for sub := range b.subs[event.StoryID] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"story_id", event.StoryID,
				"event_type", event.EventType,
			)
		}
	}
	return nil
}

// Close closes every subscriber channel. Publishing afterwards fails with
// eventstream.ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for storyID, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, storyID)
	}
	return nil
}
