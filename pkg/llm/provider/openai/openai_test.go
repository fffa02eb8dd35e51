package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/llm/provider/openai"
)

const responseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1735689600,
  "status": "completed",
  "model": "gpt-5-mini",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "{\"is_memory_worthy\":true}", "annotations": []}]
  }]
}`

var _ = Describe("Generator", func() {
	It("requests a strict json_schema response", func() {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(strings.HasSuffix(r.URL.Path, "/responses")).To(BeTrue())
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(responseBody))
		}))
		defer server.Close()

		g := openai.New("test-key", "", server.URL+"/v1")
		out, err := g.GenerateJSON(context.Background(), llm.Request{
			Name:         "memory_analysis",
			Instructions: "classify",
			Prompt:       "We went to Paris.",
			Schema:       map[string]any{"type": "object"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"is_memory_worthy":true}`))

		Expect(got["model"]).To(Equal(openai.DefaultModel))
		format := got["text"].(map[string]any)["format"].(map[string]any)
		Expect(format["type"]).To(Equal("json_schema"))
		Expect(format["name"]).To(Equal("memory_analysis"))
		Expect(format["strict"]).To(BeTrue())
	})

	It("maps API errors to status errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		}))
		defer server.Close()

		_, err := openai.New("k", "", server.URL+"/v1").GenerateJSON(context.Background(), llm.Request{Schema: map[string]any{}})
		Expect(err).To(HaveOccurred())
		Expect(llm.IsRetryable(err)).To(BeTrue())
	})

	It("requires a schema", func() {
		_, err := openai.New("k", "", "").GenerateJSON(context.Background(), llm.Request{Name: "x"})
		Expect(err).To(MatchError(ContainSubstring("schema is required")))
	})
})
