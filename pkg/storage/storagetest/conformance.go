// Package storagetest holds the behavioural checks every storage.Driver
// implementation must pass. It is imported only from driver test suites.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

// Driver is a storage.Driver whose clock can be pinned.
type Driver interface {
	storage.Driver
	SetClock(now func() time.Time)
}

// DescribeDriver registers the conformance specs for the driver built by newDriver.
func DescribeDriver(name string, newDriver func(ctx context.Context) Driver) bool {
	return Describe(name+" conformance", func() {
		var (
			ctx     context.Context
			drv     Driver
			clockMu sync.Mutex
			clock   time.Time
			s       *story.Story
		)

		tick := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		}

		addContribution := func(body string, occurred *time.Time) *story.Contribution {
			c, err := story.NewContribution(s.ID, "Ana", body)
			Expect(err).NotTo(HaveOccurred())
			c.OccurredAt = occurred
			Expect(drv.CreateContribution(ctx, c)).To(Succeed())
			return c
		}

		BeforeEach(func() {
			ctx = context.Background()
			clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			drv = newDriver(ctx)
			drv.SetClock(tick)

			s = &story.Story{Title: "Summer in France", ThemingEnabled: true}
			Expect(drv.CreateStory(ctx, s)).To(Succeed())
		})

		AfterEach(func() {
			Expect(drv.Close()).To(Succeed())
		})

		Describe("stories", func() {
			It("round-trips a story", func() {
				got, err := drv.GetStory(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Title).To(Equal("Summer in France"))
				Expect(got.ThemingEnabled).To(BeTrue())
				Expect(got.CreatedAt).To(Equal(s.CreatedAt))
			})

			It("returns NotFoundError for unknown ids", func() {
				_, err := drv.GetStory(ctx, "missing")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("cascades deletes to owned records", func() {
				c := addContribution("We went to Paris.", nil)
				_, err := drv.RecordMentions(ctx, c, []story.Candidate{{Name: "Paris", Kind: story.Place, Confidence: 0.9}})
				Expect(err).NotTo(HaveOccurred())

				Expect(drv.DeleteStory(ctx, s.ID)).To(Succeed())

				_, err = drv.GetContribution(ctx, c.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
				entities, err := drv.ListEntities(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(entities).To(BeEmpty())
			})
		})

		Describe("contributions", func() {
			It("lists chronologically by occurred_at then created_at", func() {
				june := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
				may := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
				c1 := addContribution("first posted", &june)
				c2 := addContribution("second posted", &may)
				c3 := addContribution("third posted", nil)

				list, err := drv.ListContributions(ctx, s.ID, storage.ContributionFilter{})
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(list)).To(Equal([]string{c3.ID, c2.ID, c1.ID}))
			})

			It("records an analysis only once", func() {
				c := addContribution("We went to Paris.", nil)

				applied, err := drv.RecordAnalysis(ctx, c.ID, true, &story.Analysis{MemoryType: "travel", Confidence: 0.9, KeyDetails: []string{"Paris"}})
				Expect(err).NotTo(HaveOccurred())
				Expect(applied).To(BeTrue())

				applied, err = drv.RecordAnalysis(ctx, c.ID, false, &story.Analysis{Reasoning: "late"})
				Expect(err).NotTo(HaveOccurred())
				Expect(applied).To(BeFalse())

				got, err := drv.GetContribution(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Worthiness()).To(Equal(story.Worthy))
				Expect(got.MemoryType()).To(Equal("travel"))
				Expect(got.KeyDetails()).To(Equal([]string{"Paris"}))
			})

			It("filters by worthiness and resets analysis", func() {
				a := addContribution("worthy", nil)
				b := addContribution("not worthy", nil)
				addContribution("pending", nil)
				_, err := drv.RecordAnalysis(ctx, a.ID, true, &story.Analysis{})
				Expect(err).NotTo(HaveOccurred())
				_, err = drv.RecordAnalysis(ctx, b.ID, false, &story.Analysis{Reasoning: "small talk"})
				Expect(err).NotTo(HaveOccurred())

				worthy, err := drv.ListContributions(ctx, s.ID, storage.ContributionFilter{Worthiness: story.Worthy})
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(worthy)).To(Equal([]string{a.ID}))

				pending, err := drv.ListContributions(ctx, s.ID, storage.ContributionFilter{Worthiness: story.Unanalyzed})
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(HaveLen(1))

				Expect(drv.ResetAnalysis(ctx, b.ID)).To(Succeed())
				got, err := drv.GetContribution(ctx, b.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Worthiness()).To(Equal(story.Unanalyzed))
				Expect(got.Analysis).To(BeNil())
			})

			It("returns NotFoundError when recording against a missing contribution", func() {
				_, err := drv.RecordAnalysis(ctx, "missing", true, nil)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("entities", func() {
			It("dedups entities by normalized name and kind", func() {
				c1 := addContribution("We went to Paris.", nil)
				c2 := addContribution("paris again", nil)

				res, err := drv.RecordMentions(ctx, c1, []story.Candidate{
					{Name: "Paris", Kind: story.Place, Confidence: 0.9},
					{Name: "Paris", Kind: story.Thing, Confidence: 0.6},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(storage.MentionResult{NewEntities: 2, NewMentions: 2}))

				res, err = drv.RecordMentions(ctx, c2, []story.Candidate{{Name: "  paris ", Kind: story.Place, Confidence: 0.8}})
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(storage.MentionResult{NewEntities: 0, NewMentions: 1}))

				entities, err := drv.ListEntities(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(entities).To(HaveLen(2))

				place := entities[0]
				if place.Kind != story.Place {
					place = entities[1]
				}
				Expect(place.Name).To(Equal("Paris"))
				Expect(place.MentionCount()).To(Equal(2))
				avg, _ := place.AverageConfidence()
				Expect(avg).To(BeNumerically("~", 0.85, 1e-9))
				first, _ := place.FirstMentionedAt()
				Expect(first).To(Equal(c1.CreatedAt))
			})

			It("keeps one mention per entity and contribution", func() {
				c := addContribution("We went to Paris.", nil)
				cands := []story.Candidate{{Name: "Paris", Kind: story.Place, Confidence: 0.9}}

				_, err := drv.RecordMentions(ctx, c, cands)
				Expect(err).NotTo(HaveOccurred())
				res, err := drv.RecordMentions(ctx, c, cands)
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(storage.MentionResult{}))

				entities, err := drv.ListEntities(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(entities).To(HaveLen(1))
				Expect(entities[0].Mentions).To(HaveLen(1))

				got, err := drv.GetEntity(ctx, entities[0].ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.MentionCount()).To(Equal(1))
			})
		})

		Describe("themes", func() {
			It("keeps a single row per story and advances updated_at", func() {
				c := addContribution("We went to Paris.", nil)
				_, err := drv.RecordMentions(ctx, c, []story.Candidate{{Name: "Paris", Kind: story.Place, Confidence: 0.9}})
				Expect(err).NotTo(HaveOccurred())
				entities, err := drv.ListEntities(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())

				url1, url2 := "https://img/1", "https://img/2"
				first, err := drv.UpsertTheme(ctx, &story.Theme{
					StoryID:            s.ID,
					SourceEntityID:     entities[0].ID,
					BackgroundImageURL: &url1,
					Metadata:           story.ThemeMetadata{ThemeScore: 88, SecondaryImages: []string{}},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(first.SourceEntity).NotTo(BeNil())
				Expect(first.SourceEntity.Name).To(Equal("Paris"))

				second, err := drv.UpsertTheme(ctx, &story.Theme{
					StoryID:            s.ID,
					SourceEntityID:     entities[0].ID,
					BackgroundImageURL: &url2,
					Metadata:           story.ThemeMetadata{ThemeScore: 98, SecondaryImages: []string{"https://img/s"}},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(second.ID).To(Equal(first.ID))
				Expect(second.CreatedAt).To(Equal(first.CreatedAt))
				Expect(second.UpdatedAt).To(BeTemporally(">", first.UpdatedAt))
				Expect(second.ImageURL()).To(Equal(url2))
				Expect(second.Metadata.SecondaryImages).To(Equal([]string{"https://img/s"}))
				Expect(second.Metadata.ThemeScore).To(Equal(98.0))
			})

			It("keeps one row with a stable id under concurrent upserts", func() {
				const writers = 8
				var wg sync.WaitGroup
				themeIDs := make([]string, writers)
				errs := make([]error, writers)
				for i := range writers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						defer GinkgoRecover()
						url := fmt.Sprintf("https://img/%d", i)
						t, err := drv.UpsertTheme(ctx, &story.Theme{
							StoryID:            s.ID,
							BackgroundImageURL: &url,
							Metadata:           story.ThemeMetadata{ThemeScore: float64(i), SecondaryImages: []string{}},
						})
						errs[i] = err
						if err == nil {
							themeIDs[i] = t.ID
						}
					}()
				}
				wg.Wait()

				for _, err := range errs {
					Expect(err).NotTo(HaveOccurred())
				}
				stored, err := drv.GetTheme(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				for _, id := range themeIDs {
					Expect(id).To(Equal(stored.ID))
				}
			})

			It("returns NotFoundError when no theme exists", func() {
				_, err := drv.GetTheme(ctx, s.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("synthesis", func() {
			It("replaces the current narrative and appends revisions", func() {
				_, err := drv.GetSynthesis(ctx, s.ID)
				Expect(storage.IsNotFound(err)).To(BeTrue())

				first, err := drv.SaveSynthesis(ctx, &story.SynthesizedMemory{
					StoryID:  s.ID,
					Content:  "v1",
					Metadata: story.SynthesisMetadata{Title: "One", IncludedContributionIDs: []string{"c1"}},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(first.Revision).To(Equal(1))

				second, err := drv.SaveSynthesis(ctx, &story.SynthesizedMemory{
					StoryID:  s.ID,
					Content:  "v2",
					Metadata: story.SynthesisMetadata{Title: "Two", IncludedContributionIDs: []string{"c1", "c2"}},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(second.ID).To(Equal(first.ID))
				Expect(second.Revision).To(Equal(2))
				Expect(second.Content).To(Equal("v2"))
				Expect(second.Metadata.IncludedContributionIDs).To(Equal([]string{"c1", "c2"}))

				revs, err := drv.ListRevisions(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(revs).To(HaveLen(2))
				Expect(revs[0].Content).To(Equal("v1"))
				Expect(revs[0].Metadata.Title).To(Equal("One"))
				Expect(revs[1].Revision).To(Equal(2))
			})

			It("numbers concurrent saves contiguously", func() {
				const writers = 8
				var wg sync.WaitGroup
				errs := make([]error, writers)
				for i := range writers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						defer GinkgoRecover()
						_, errs[i] = drv.SaveSynthesis(ctx, &story.SynthesizedMemory{
							StoryID:  s.ID,
							Content:  fmt.Sprintf("v%d", i),
							Metadata: story.SynthesisMetadata{Title: "Draft"},
						})
					}()
				}
				wg.Wait()

				for _, err := range errs {
					Expect(err).NotTo(HaveOccurred())
				}
				revs, err := drv.ListRevisions(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(revs).To(HaveLen(writers))
				for i, r := range revs {
					Expect(r.Revision).To(Equal(i + 1))
				}

				current, err := drv.GetSynthesis(ctx, s.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(current.Revision).To(Equal(writers))
				Expect(current.Content).To(Equal(revs[writers-1].Content))
			})
		})
	})
}

func ids(list []*story.Contribution) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}
