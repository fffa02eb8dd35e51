package eventstream

import "context"

// Publisher publishes story events to an event stream backend.
type Publisher interface {
	PublishStoryEvent(ctx context.Context, event *StoryEvent) error
	Close() error
}
