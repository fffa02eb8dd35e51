// Package vectortest holds the behavioural checks every vector.Driver
// implementation must pass. It is imported only from driver test suites.
package vectortest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/vector"
)

// Dimensions is the embedding length the conformance specs use.
const Dimensions = 4

// DescribeDriver registers the conformance specs for the driver built by
// newDriver, which must accept Dimensions-long embeddings.
func DescribeDriver(name string, newDriver func() vector.Driver) bool {
	return Describe(name+" conformance", func() {
		var (
			ctx context.Context
			drv vector.Driver
		)

		ids := func(results []vector.QueryResult) []string {
			out := make([]string, len(results))
			for i, r := range results {
				out[i] = r.ID
			}
			return out
		}

		BeforeEach(func() {
			ctx = context.Background()
			drv = newDriver()

			Expect(drv.Add(ctx, []vector.Document{
				{ID: "c1", StoryID: "s1", Embedding: []float32{1, 0, 0, 0}},
				{ID: "c2", StoryID: "s1", Embedding: []float32{0.9, 0.1, 0, 0}},
				{ID: "c3", StoryID: "s1", Embedding: []float32{0, 0, 1, 0}},
				{ID: "o1", StoryID: "s2", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
		})

		AfterEach(func() {
			Expect(drv.Close()).To(Succeed())
		})

		It("accepts an empty batch", func() {
			Expect(drv.Add(ctx, nil)).To(Succeed())
		})

		It("returns the closest documents of the story first", func() {
			results, err := drv.Query(ctx, "s1", []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"c1", "c2"}))
			Expect(results[0].StoryID).To(Equal("s1"))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
			Expect(results[0].Score).To(BeNumerically("<=", 1))
		})

		It("never matches documents of another story", func() {
			results, err := drv.Query(ctx, "s2", []float32{0, 0, 1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"o1"}))

			results, err = drv.Query(ctx, "unknown", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("defaults topK when zero", func() {
			results, err := drv.Query(ctx, "s1", []float32{1, 0, 0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
		})

		It("replaces a document with the same ID", func() {
			Expect(drv.Add(ctx, []vector.Document{
				{ID: "c3", StoryID: "s1", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())

			results, err := drv.Query(ctx, "s1", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(ids(results)[:2]).To(ConsistOf("c1", "c3"))
		})

		It("deletes documents and ignores unknown IDs", func() {
			Expect(drv.Delete(ctx, []string{"c1", "missing"})).To(Succeed())
			Expect(drv.Delete(ctx, nil)).To(Succeed())

			results, err := drv.Query(ctx, "s1", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(results)).To(Equal([]string{"c2", "c3"}))
		})

		It("rejects embeddings of the wrong length", func() {
			_, err := drv.Query(ctx, "s1", []float32{1, 0}, 10)
			Expect(err).To(MatchError(vector.ErrDimensions))
		})
	})
}
