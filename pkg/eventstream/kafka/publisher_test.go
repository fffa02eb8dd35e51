package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/eventstream/kafka"
	"github.com/papercomputeco/storyline/pkg/story"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	It("validates its config", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())
		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())

		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "storyline.events"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("writes events keyed by story id", func() {
		w := &recordingWriter{}
		p := kafka.NewPublisherWithWriter(w)
		event := eventstream.NewStoryEvent(eventstream.EventTypeSynthesisUpdated, eventstream.Snapshot{
			Story: &story.Story{ID: "story-1"},
		}, time.Now())

		Expect(p.PublishStoryEvent(context.Background(), event)).To(Succeed())
		Expect(w.messages).To(HaveLen(1))
		Expect(string(w.messages[0].Key)).To(Equal("story-1"))
		Expect(w.messages[0].Headers).To(ContainElement(kafkago.Header{
			Key:   "event_type",
			Value: []byte(eventstream.EventTypeSynthesisUpdated),
		}))

		var decoded eventstream.StoryEvent
		Expect(json.Unmarshal(w.messages[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))

		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("rejects nil events and surfaces write errors", func() {
		w := &recordingWriter{err: errors.New("broker down")}
		p := kafka.NewPublisherWithWriter(w)

		Expect(p.PublishStoryEvent(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		err := p.PublishStoryEvent(context.Background(), &eventstream.StoryEvent{StoryID: "s"})
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})
})
