package story_test

import (
	"slices"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/story"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Contribution", func() {
	It("trims the body and rejects empty text", func() {
		c, err := story.NewContribution("s1", " Ana ", "  We went to Paris.  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Body).To(Equal("We went to Paris."))
		Expect(c.AuthorName).To(Equal("Ana"))
		Expect(c.StoryID()).To(Equal("s1"))

		_, err = story.NewContribution("s1", "Ana", "   ")
		Expect(err).To(MatchError(story.ErrEmptyBody))
	})

	It("reports the tri-state worthiness", func() {
		c := &story.Contribution{}
		Expect(c.Worthiness()).To(Equal(story.Unanalyzed))
		c.MemoryWorthy = ptr(true)
		Expect(c.Worthiness()).To(Equal(story.Worthy))
		c.MemoryWorthy = ptr(false)
		Expect(c.Worthiness()).To(Equal(story.NotWorthy))
	})

	It("orders chronologically with unset occurred_at first", func() {
		base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		a := &story.Contribution{ID: "a", CreatedAt: base.Add(time.Hour), OccurredAt: ptr(base.AddDate(-1, 0, 0))}
		b := &story.Contribution{ID: "b", CreatedAt: base}
		c := &story.Contribution{ID: "c", CreatedAt: base.Add(2 * time.Hour), OccurredAt: ptr(base.AddDate(-2, 0, 0))}
		d := &story.Contribution{ID: "d", CreatedAt: base.Add(3 * time.Hour), OccurredAt: ptr(base.AddDate(-1, 0, 0))}

		list := []*story.Contribution{d, a, b, c}
		slices.SortFunc(list, story.Chronological)

		ids := make([]string, len(list))
		for i, c := range list {
			ids[i] = c.ID
		}
		Expect(ids).To(Equal([]string{"b", "c", "a", "d"}))
	})
})

var _ = Describe("Entity", func() {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	It("aggregates mentions", func() {
		e := &story.Entity{Name: "Paris", Kind: story.Place, Mentions: []story.Mention{
			{ContributionID: "c2", Confidence: 0.8, MentionedAt: t0.Add(time.Hour)},
			{ContributionID: "c1", Confidence: 0.9, MentionedAt: t0},
		}}
		Expect(e.MentionCount()).To(Equal(2))

		avg, ok := e.AverageConfidence()
		Expect(ok).To(BeTrue())
		Expect(avg).To(BeNumerically("~", 0.85, 1e-9))

		first, _ := e.FirstMentionedAt()
		last, _ := e.LastMentionedAt()
		Expect(first).To(Equal(t0))
		Expect(last).To(Equal(t0.Add(time.Hour)))
	})

	It("rounds the average to two decimals", func() {
		e := &story.Entity{Mentions: []story.Mention{{Confidence: 0.5}, {Confidence: 0.6}, {Confidence: 0.6}}}
		avg, _ := e.AverageConfidence()
		Expect(avg).To(Equal(0.57))
	})

	It("leaves aggregates undefined without mentions", func() {
		e := &story.Entity{}
		_, ok := e.AverageConfidence()
		Expect(ok).To(BeFalse())
		_, ok = e.LastMentionedAt()
		Expect(ok).To(BeFalse())
	})

	It("normalizes names for uniqueness", func() {
		Expect(story.NormalizeName("  Paris ")).To(Equal(story.NormalizeName("paris")))
	})
})

var _ = Describe("ThemeChanged", func() {
	DescribeTable("compares background images",
		func(before, after *story.Theme, changed bool) {
			Expect(story.ThemeChanged(before, after)).To(Equal(changed))
		},
		Entry("no theme to no theme", nil, nil, false),
		Entry("nil to image", nil, &story.Theme{BackgroundImageURL: ptr("u1")}, true),
		Entry("image to nil", &story.Theme{BackgroundImageURL: ptr("u1")}, &story.Theme{}, true),
		Entry("same image", &story.Theme{BackgroundImageURL: ptr("u1")}, &story.Theme{BackgroundImageURL: ptr("u1")}, false),
		Entry("different image", &story.Theme{BackgroundImageURL: ptr("u1")}, &story.Theme{BackgroundImageURL: ptr("u2")}, true),
	)
})

var _ = Describe("Story", func() {
	It("describes itself as a contribution owner", func() {
		start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		var owner story.Owner = &story.Story{
			ID:          "s1",
			Title:       "Summer in France",
			Description: "Two weeks on the coast",
			StartDate:   &start,
		}

		Expect(owner.OwnerRef()).To(Equal(story.OwnerRef{Kind: story.OwnerStory, ID: "s1"}))
		Expect(owner.OwnerTitle()).To(Equal("Summer in France"))
		Expect(owner.OwnerDescription()).To(Equal("Two weeks on the coast"))
		from, to := owner.OwnerDateRange()
		Expect(from).To(Equal(&start))
		Expect(to).To(BeNil())
	})
})
