package provider_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/llm/provider"
	"github.com/papercomputeco/storyline/pkg/llm/provider/ollama"
	"github.com/papercomputeco/storyline/pkg/llm/provider/openai"
)

var _ = Describe("Resolve", func() {
	BeforeEach(func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		GinkgoT().Setenv("GEMINI_API_KEY", "")
		GinkgoT().Setenv("GOOGLE_API_KEY", "")
	})

	It("prefers an explicit key", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "env-key")
		r := provider.Resolve(provider.Config{Provider: "openai", APIKey: "explicit"})
		Expect(r).To(Equal(provider.Resolved{Provider: "openai", APIKey: "explicit"}))
	})

	It("falls back to the environment", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "gem")
		r := provider.Resolve(provider.Config{Provider: "Gemini"})
		Expect(r).To(Equal(provider.Resolved{Provider: "gemini", APIKey: "gem"}))
	})

	It("falls back to ollama without any key", func() {
		r := provider.Resolve(provider.Config{Provider: "openai"})
		Expect(r.Provider).To(Equal("ollama"))
		Expect(provider.HasCredentials(provider.Config{Provider: "openai"})).To(BeFalse())
	})

	It("defaults to openai", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "k")
		Expect(provider.Resolve(provider.Config{}).Provider).To(Equal("openai"))
	})
})

var _ = Describe("New", func() {
	BeforeEach(func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")
	})

	It("builds an openai generator with the default model", func() {
		g, err := provider.New(context.Background(), provider.Config{Provider: "openai", APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&openai.Generator{}))
		Expect(g.Model()).To(Equal("gpt-5-mini"))
	})

	It("drops the configured model when falling back", func() {
		g, err := provider.New(context.Background(), provider.Config{Provider: "openai", Model: "gpt-5-mini"})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&ollama.Generator{}))
		Expect(g.Model()).To(Equal(ollama.DefaultModel))
	})

	It("rejects unknown providers", func() {
		_, err := provider.New(context.Background(), provider.Config{Provider: "bard"})
		Expect(err).To(MatchError(ContainSubstring("unsupported llm provider")))
	})
})
