package theme_test

import (
	"context"
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/theme"
)

var _ = Describe("Manager", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		searcher *fakeSearcher
		clock    time.Time
		s        *story.Story
		manager  *theme.Manager
	)

	tick := func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	mention := func(name string, kind story.EntityKind, confidence float64) {
		c, err := story.NewContribution(s.ID, "Ana", "about "+name)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CreateContribution(ctx, c)).To(Succeed())
		_, err = store.RecordMentions(ctx, c, []story.Candidate{{Name: name, Kind: kind, Confidence: confidence}})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = now
		store = inmemory.NewDriver()
		store.SetClock(tick)
		searcher = newFakeSearcher(map[string]string{
			"Paris":  "https://img.example/paris.jpg",
			"Marie":  "https://img.example/marie.jpg",
			"Louvre": "https://img.example/louvre.jpg",
		})
		resolver := theme.NewResolver(searcher, theme.WithRand(rand.New(rand.NewPCG(1, 2))))
		manager = theme.NewManager(store, resolver, theme.WithClock(func() time.Time { return clock }))

		s = &story.Story{Title: "Summer in France", ThemingEnabled: true}
		Expect(store.CreateStory(ctx, s)).To(Succeed())
	})

	It("creates the theme from the top entity", func() {
		mention("Paris", story.Place, 0.9)
		mention("Paris", story.Place, 0.8)
		mention("Marie", story.Person, 0.9)

		out, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Changed).To(BeTrue())
		Expect(out.Previous).To(BeNil())
		Expect(out.Theme.SourceEntity.Name).To(Equal("Paris"))
		Expect(out.Theme.ImageURL()).To(Equal("https://img.example/paris.jpg"))
		Expect(out.Theme.Metadata.SecondaryImages).To(Equal([]string{"https://img.example/marie.jpg"}))
		Expect(out.Theme.Metadata.ThemeScore).To(BeNumerically(">", 30))

		data, err := manager.Current(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.PrimaryEntity.Name).To(Equal("Paris"))
		Expect(manager.HasValidTheme(ctx, s.ID)).To(BeTrue())
	})

	It("keeps one theme row and advances updated_at on re-analysis", func() {
		mention("Paris", story.Place, 0.9)

		first, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		second, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.Theme.ID).To(Equal(first.Theme.ID))
		Expect(second.Theme.CreatedAt).To(Equal(first.Theme.CreatedAt))
		Expect(second.Theme.UpdatedAt).To(BeTemporally(">", first.Theme.UpdatedAt))
		Expect(second.Changed).To(BeFalse())
	})

	It("skips image lookups when the selection is unchanged", func() {
		mention("Paris", story.Place, 0.9)
		_, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		searches := len(searcher.calls())

		out, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Reused).To(BeTrue())
		Expect(searcher.calls()).To(HaveLen(searches))
		Expect(out.Theme.ImageURL()).To(Equal("https://img.example/paris.jpg"))
	})

	It("re-resolves on refresh and reports a changed image", func() {
		mention("Paris", story.Place, 0.9)
		_, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())

		searcher.set("Paris", "https://img.example/paris-2.jpg")
		out, err := manager.Refresh(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Reused).To(BeFalse())
		Expect(out.Changed).To(BeTrue())
		Expect(out.Theme.ImageURL()).To(Equal("https://img.example/paris-2.jpg"))
	})

	It("reports no change when a refresh resolves the same image", func() {
		mention("Paris", story.Place, 0.9)
		_, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())

		out, err := manager.Refresh(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Changed).To(BeFalse())
	})

	It("uses the default image without a searcher", func() {
		mention("Paris", story.Place, 0.9)
		out, err := theme.NewManager(store, nil).AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Theme.ImageURL()).To(Equal(story.DefaultImageURL))
		Expect(out.Theme.Metadata.SecondaryImages).To(BeEmpty())
	})

	It("does nothing when theming is disabled or there are no entities", func() {
		out, err := manager.AnalyzeAndUpdate(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Theme).To(BeNil())

		off := &story.Story{Title: "Quiet"}
		Expect(store.CreateStory(ctx, off)).To(Succeed())
		out, err = manager.AnalyzeAndUpdate(ctx, off.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Theme).To(BeNil())

		data, err := manager.Current(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeNil())
		Expect(manager.HasValidTheme(ctx, s.ID)).To(BeFalse())
	})

	It("wraps a missing story as a theme analysis failure", func() {
		_, err := manager.AnalyzeAndUpdate(ctx, "missing")
		Expect(err).To(MatchError(theme.ErrThemeAnalysis))
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
