package libsql_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage/libsql"
	"github.com/papercomputeco/storyline/pkg/storage/storagetest"
)

func databaseURL() string {
	url := os.Getenv("STORYLINE_TEST_LIBSQL_URL")
	if url == "" {
		Skip("STORYLINE_TEST_LIBSQL_URL not set, skipping libSQL tests")
	}
	return url
}

var _ = storagetest.DescribeDriver("libSQL", func(ctx context.Context) storagetest.Driver {
	driver, err := libsql.NewDriver(ctx, databaseURL())
	Expect(err).NotTo(HaveOccurred())

	stories, err := driver.ListStories(ctx)
	Expect(err).NotTo(HaveOccurred())
	for _, s := range stories {
		Expect(driver.DeleteStory(ctx, s.ID)).To(Succeed())
	}
	return driver
})
