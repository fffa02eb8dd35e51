package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/llm/provider/ollama"
)

var _ = Describe("Generator", func() {
	It("sends the schema as the chat format", func() {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"ok\":true}"},"done":true}`))
		}))
		defer server.Close()

		g := ollama.New(server.URL, "")
		out, err := g.GenerateJSON(context.Background(), llm.Request{
			Instructions: "be brief",
			Prompt:       "hello",
			Schema:       map[string]any{"type": "object"},
			Temperature:  llm.Temperature(1.0),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"ok":true}`))
		Expect(got["model"]).To(Equal(ollama.DefaultModel))
		Expect(got["format"]).To(Equal(map[string]any{"type": "object"}))
		Expect(got["options"]).To(HaveKeyWithValue("temperature", 1.0))
		Expect(got["messages"]).To(HaveLen(2))
	})

	It("surfaces HTTP failures as retryable status errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := ollama.New(server.URL, "m").GenerateJSON(context.Background(), llm.Request{})
		var se *llm.StatusError
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(llm.IsRetryable(err)).To(BeTrue())
	})
})
