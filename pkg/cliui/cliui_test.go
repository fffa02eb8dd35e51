package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("reports success with a checkmark", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Classifying contribution", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Classifying contribution"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})

	It("returns the step error and marks failure", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		err := cliui.Step(&buf, "Resolving images", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("prints a single line when not on a terminal", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Synthesizing", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(HavePrefix("\r  " + cliui.SuccessMark + " Synthesizing"))
		Expect(cliui.IsTerminal(&buf)).To(BeFalse())
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses one decimal of seconds above", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the narrative text", func() {
		out, err := cliui.RenderMarkdown("# Summer in Paris\n\nWe walked along the Seine.")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Summer in Paris"))
		Expect(out).To(ContainSubstring("Seine"))
	})
})
