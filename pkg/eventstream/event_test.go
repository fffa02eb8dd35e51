package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/story"
)

var _ = Describe("Event", func() {
	It("marshals StoryEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0)
		event := eventstream.NewStoryEvent(eventstream.EventTypeThemeChanged, eventstream.Snapshot{
			Story: &story.Story{ID: "s1", Title: "Summer"},
		}, now)

		Expect(event.StoryID).To(Equal("s1"))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt.Location()).To(Equal(time.UTC))

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", "storyline.theme.changed"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("story_id", "s1"))
		Expect(got["payload"]).To(HaveKey("entities"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeSynthesisUpdated).To(Equal("storyline.synthesis.updated"))
	})
})
