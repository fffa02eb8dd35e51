package sse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	next := func(r *Reader) *Event {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		return ev
	}

	It("parses consecutive events", func() {
		r := NewReader(strings.NewReader("data: first\n\ndata: second\n\n"))

		Expect(next(r).Data).To(Equal("first"))
		Expect(next(r).Data).To(Equal("second"))
		Expect(next(r)).To(BeNil())
	})

	It("parses type and id", func() {
		r := NewReader(strings.NewReader("id: 42\nevent: storyline.theme.changed\ndata: {}\n\n"))

		ev := next(r)
		Expect(ev.ID).To(Equal("42"))
		Expect(ev.Type).To(Equal("storyline.theme.changed"))
		Expect(ev.Data).To(Equal("{}"))
	})

	It("joins data lines with a newline", func() {
		r := NewReader(strings.NewReader("data: line one\ndata: line two\n\n"))
		Expect(next(r).Data).To(Equal("line one\nline two"))
	})

	It("skips comments and keep-alive blank lines", func() {
		r := NewReader(strings.NewReader(": ping\n\n\n\ndata: hello\n\n"))
		Expect(next(r).Data).To(Equal("hello"))
		Expect(next(r)).To(BeNil())
	})

	It("accepts a field without a space after the colon", func() {
		r := NewReader(strings.NewReader("data:hello\n\n"))
		Expect(next(r).Data).To(Equal("hello"))
	})

	It("ignores unknown fields", func() {
		r := NewReader(strings.NewReader("retry: 3000\nfoo: bar\ndata: hello\n\n"))

		ev := next(r)
		Expect(ev.Data).To(Equal("hello"))
		Expect(ev.Type).To(BeEmpty())
	})

	It("yields a final event without a trailing blank line", func() {
		r := NewReader(strings.NewReader("data: tail"))
		Expect(next(r).Data).To(Equal("tail"))
		Expect(next(r)).To(BeNil())
	})

	It("returns nil on empty input", func() {
		Expect(next(NewReader(strings.NewReader("")))).To(BeNil())
	})
})
