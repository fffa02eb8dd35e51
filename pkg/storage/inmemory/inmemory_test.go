package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/storage/storagetest"
	"github.com/papercomputeco/storyline/pkg/story"
)

var _ = storagetest.DescribeDriver("InMemory", func(context.Context) storagetest.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("rejects contributions for unknown stories", func() {
		d := inmemory.NewDriver()
		c, err := story.NewContribution("missing", "Ana", "hello")
		Expect(err).NotTo(HaveOccurred())

		err = d.CreateContribution(context.Background(), c)
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("returns copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		s := &story.Story{Title: "Trip"}
		Expect(d.CreateStory(ctx, s)).To(Succeed())
		c, err := story.NewContribution(s.ID, "Ana", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.CreateContribution(ctx, c)).To(Succeed())

		got, err := d.GetContribution(ctx, c.ID)
		Expect(err).NotTo(HaveOccurred())
		got.Body = "changed"

		again, err := d.GetContribution(ctx, c.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Body).To(Equal("hello"))
	})
})
