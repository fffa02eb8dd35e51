package utils

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseTime", func() {
	It("parses RFC 3339 timestamps", func() {
		t, err := ParseTime("2024-06-01T18:30:00Z")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)))
	})

	It("parses plain dates", func() {
		t, err := ParseTime("2024-06-01")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("rejects anything else", func() {
		_, err := ParseTime("June 1st")
		Expect(err).To(HaveOccurred())
	})
})
