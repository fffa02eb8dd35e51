package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/embeddings"
	"github.com/papercomputeco/storyline/pkg/embeddings/ollama"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		status   int
		response string
		received map[string]any
		path     string
	)

	BeforeEach(func() {
		status = http.StatusOK
		response = `{"embeddings":[[0.1,0.2,0.3]]}`
		received = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(response))
		}))
		DeferCleanup(server.Close)
	})

	It("posts the model and input and returns the first embedding", func() {
		e := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL + "/"})
		Expect(e.Model()).To(Equal(ollama.DefaultEmbeddingModel))

		vec, err := e.Embed(context.Background(), "We walked through Lisbon.")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
		Expect(path).To(Equal("/api/embed"))
		Expect(received).To(HaveKeyWithValue("model", ollama.DefaultEmbeddingModel))
		Expect(received).To(HaveKeyWithValue("input", "We walked through Lisbon."))
		Expect(e.Close()).To(Succeed())
	})

	It("wraps non-200 responses in ErrEmbedding", func() {
		status = http.StatusNotFound
		response = `model "nope" not found`

		_, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "nope"}).Embed(context.Background(), "x")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("status 404"))
	})

	It("fails when no embedding comes back", func() {
		response = `{"embeddings":[]}`

		_, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL}).Embed(context.Background(), "x")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})
})
