package eventstream

import (
	"context"
	"errors"
)

// Fanout publishes every event to each of its publishers in order.
type Fanout []Publisher

var _ Publisher = Fanout(nil)

// NewFanout returns a publisher over pubs, skipping nil entries.
func NewFanout(pubs ...Publisher) Fanout {
	out := make(Fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// PublishStoryEvent publishes to every publisher and joins their errors.
// A failing publisher does not stop the others.
func (f Fanout) PublishStoryEvent(ctx context.Context, event *StoryEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	var errs []error
	for _, p := range f {
		errs = append(errs, p.PublishStoryEvent(ctx, event))
	}
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
