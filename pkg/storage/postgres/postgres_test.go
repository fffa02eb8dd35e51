package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage/postgres"
	"github.com/papercomputeco/storyline/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("STORYLINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("STORYLINE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = storagetest.DescribeDriver("PostgreSQL", func(ctx context.Context) storagetest.Driver {
	driver, err := postgres.NewDriver(ctx, connStr())
	Expect(err).NotTo(HaveOccurred())

	// Clean all stories before each test for isolation; owned rows cascade.
	stories, err := driver.ListStories(ctx)
	Expect(err).NotTo(HaveOccurred())
	for _, s := range stories {
		Expect(driver.DeleteStory(ctx, s.ID)).To(Succeed())
	}
	return driver
})
