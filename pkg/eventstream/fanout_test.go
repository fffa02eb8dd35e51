package eventstream_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/eventstream"
)

type recordingPublisher struct {
	events []*eventstream.StoryEvent
	err    error
	closed bool
}

func (r *recordingPublisher) PublishStoryEvent(_ context.Context, e *eventstream.StoryEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return r.err
}

var _ = Describe("Fanout", func() {
	It("publishes to every publisher even when one fails", func() {
		boom := errors.New("boom")
		failing := &recordingPublisher{err: boom}
		ok := &recordingPublisher{}
		f := eventstream.NewFanout(failing, nil, ok)
		Expect(f).To(HaveLen(2))

		event := &eventstream.StoryEvent{StoryID: "s1"}
		err := f.PublishStoryEvent(context.Background(), event)
		Expect(err).To(MatchError(boom))
		Expect(failing.events).To(ConsistOf(event))
		Expect(ok.events).To(ConsistOf(event))
	})

	It("rejects nil events", func() {
		f := eventstream.NewFanout(&recordingPublisher{})
		Expect(f.PublishStoryEvent(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("closes every publisher", func() {
		a, b := &recordingPublisher{}, &recordingPublisher{}
		Expect(eventstream.NewFanout(a, b).Close()).To(Succeed())
		Expect(a.closed).To(BeTrue())
		Expect(b.closed).To(BeTrue())
	})
})
