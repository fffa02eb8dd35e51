package nop

import (
	"context"

	"github.com/papercomputeco/storyline/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishStoryEvent validates input and otherwise does nothing.
func (p *Publisher) PublishStoryEvent(_ context.Context, event *eventstream.StoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
