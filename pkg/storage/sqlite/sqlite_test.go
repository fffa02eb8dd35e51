package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/storage/sqlite"
	"github.com/papercomputeco/storyline/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("SQLite", func(ctx context.Context) storagetest.Driver {
	driver, err := sqlite.NewDriver(ctx, ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return driver
})

var _ = Describe("NewDriver", func() {
	It("creates a driver with file database", func() {
		tmpDir := GinkgoT().TempDir()
		dbPath := filepath.Join(tmpDir, "storyline.db")

		s, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		// Verify file was created
		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reopens an existing database without losing data", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "storyline.db")

		s, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		stories, err := s.ListStories(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stories).To(BeEmpty())
		Expect(s.Close()).To(Succeed())

		s, err = sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Close()).To(Succeed())
	})
})
