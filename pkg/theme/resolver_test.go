package theme_test

import (
	"context"
	"math/rand/v2"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/imagesearch"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/theme"
)

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		searcher *fakeSearcher
		resolver *theme.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		searcher = newFakeSearcher(map[string]string{
			"Paris":  "https://img.example/paris.jpg",
			"Louvre": "https://img.example/louvre.jpg",
			"Marie":  "https://img.example/marie.jpg",
			"Empty":  "",
		})
		resolver = theme.NewResolver(searcher, theme.WithRand(rand.New(rand.NewPCG(1, 2))))
	})

	It("searches for the entity name plus a category term", func() {
		url := resolver.Resolve(ctx, &story.Entity{Name: "Paris", Kind: story.Place}, theme.Hints{ExtraTerms: "night"})
		Expect(url).To(Equal("https://img.example/paris.jpg"))

		q := searcher.calls()[0]
		words := strings.Fields(q.Text)
		Expect(words).To(HaveLen(3))
		Expect(words[0]).To(Equal("Paris"))
		Expect(words[1]).To(BeElementOf("landscape", "cityscape", "architecture", "travel"))
		Expect(words[2]).To(Equal("night"))
		Expect(q.PerPage).To(Equal(1))
		Expect(q.Orientation).To(Equal(imagesearch.Landscape))
		Expect(q.ContentFilter).To(Equal("high"))
	})

	It("falls back to the default image on failure or no results", func() {
		Expect(resolver.Resolve(ctx, &story.Entity{Name: "Nowhere", Kind: story.Place}, theme.Hints{})).To(Equal(story.DefaultImageURL))
		Expect(resolver.Resolve(ctx, &story.Entity{Name: "Empty", Kind: story.Thing}, theme.Hints{})).To(Equal(story.DefaultImageURL))
	})

	It("returns the default without searching when no searcher is configured", func() {
		r := theme.NewResolver(nil)
		Expect(r.Enabled()).To(BeFalse())
		Expect(r.Resolve(ctx, &story.Entity{Name: "Paris", Kind: story.Place}, theme.Hints{})).To(Equal(story.DefaultImageURL))
		Expect(r.ResolveSecondary(ctx, []*story.Entity{{Name: "Paris"}}, 3)).To(BeEmpty())
	})

	It("resolves secondary images in order and drops failures", func() {
		urls := resolver.ResolveSecondary(ctx, []*story.Entity{
			{Name: "Louvre", Kind: story.Place},
			{Name: "Nowhere", Kind: story.Place},
			{Name: "Marie", Kind: story.Person},
			{Name: "Paris", Kind: story.Place},
		}, 3)
		Expect(urls).To(Equal([]string{"https://img.example/louvre.jpg", "https://img.example/marie.jpg"}))

		for _, q := range searcher.calls() {
			Expect(q.Orientation).To(Equal(imagesearch.Portrait))
			Expect(q.PerPage).To(Equal(1))
		}
		Expect(searcher.calls()).To(HaveLen(3))
	})
})
