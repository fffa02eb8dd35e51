package recall_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/embeddings/embeddingstest"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/story"
	vectormem "github.com/papercomputeco/storyline/pkg/vector/inmemory"
)

var _ = Describe("Index", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		embedder *embeddingstest.Embedder
		index    *recall.Index
		st       *story.Story
	)

	add := func(body string, worthy *bool) *story.Contribution {
		c, err := story.NewContribution(st.ID, "Ana", body)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CreateContribution(ctx, c)).To(Succeed())
		if worthy != nil {
			_, err := store.RecordAnalysis(ctx, c.ID, *worthy, &story.Analysis{MemoryType: "event"})
			Expect(err).NotTo(HaveOccurred())
		}
		return c
	}
	yes, no := true, false

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		embedder = embeddingstest.New("paris", "lisbon", "beach", "dinner")
		index = recall.New(store, embedder, vectormem.NewDriver())

		st = &story.Story{Title: "Summer"}
		Expect(store.CreateStory(ctx, st)).To(Succeed())
	})

	AfterEach(func() {
		Expect(index.Close()).To(Succeed())
	})

	It("finds the worthy contributions closest to the query", func() {
		paris := add("Dinner in Paris by the river.", &yes)
		lisbon := add("A beach day outside Lisbon.", &yes)
		Expect(index.Add(ctx, paris.ID)).To(Succeed())
		Expect(index.Add(ctx, lisbon.ID)).To(Succeed())

		matches, err := index.Search(ctx, st.ID, "that dinner in paris", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(2))
		Expect(matches[0].Contribution.ID).To(Equal(paris.ID))
		Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
	})

	It("embeds the subject with the body", func() {
		c := add("We swam until sunset.", nil)
		c.Subject = "Beach"
		Expect(recall.Text(c)).To(Equal("Beach\n\nWe swam until sunset."))

		c.Subject = ""
		Expect(recall.Text(c)).To(Equal("We swam until sunset."))
	})

	It("does not index contributions that are not worthy", func() {
		chatter := add("Paris weather looks fine.", &no)
		Expect(index.Add(ctx, chatter.ID)).To(Succeed())
		Expect(embedder.Calls()).To(BeEmpty())

		matches, err := index.Search(ctx, st.ID, "paris", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())
	})

	It("drops a contribution that is reclassified as not worthy", func() {
		c := add("Dinner in Paris.", &yes)
		Expect(index.Add(ctx, c.ID)).To(Succeed())

		Expect(store.ResetAnalysis(ctx, c.ID)).To(Succeed())
		_, err := store.RecordAnalysis(ctx, c.ID, false, &story.Analysis{})
		Expect(err).NotTo(HaveOccurred())

		matches, err := index.Search(ctx, st.ID, "paris", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())

		Expect(index.Add(ctx, c.ID)).To(Succeed())
		matches, err = index.Search(ctx, st.ID, "paris", 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())
	})

	It("rejects a blank query", func() {
		_, err := index.Search(ctx, st.ID, "  ", 5)
		Expect(err).To(MatchError(recall.ErrEmptyQuery))
	})

	It("surfaces embedding failures", func() {
		c := add("Dinner in Paris.", &yes)
		embedder.Fails(errors.New("ollama down"))

		Expect(index.Add(ctx, c.ID)).To(MatchError(ContainSubstring("ollama down")))
		_, err := index.Search(ctx, st.ID, "paris", 5)
		Expect(err).To(MatchError(ContainSubstring("ollama down")))
	})
})
