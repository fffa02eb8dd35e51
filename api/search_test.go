package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/classifier"
	"github.com/papercomputeco/storyline/pkg/embeddings/embeddingstest"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/llm/llmtest"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
	vectormem "github.com/papercomputeco/storyline/pkg/vector/inmemory"
)

var _ = Describe("Search", func() {
	var (
		server *Server
		svc    *pipeline.Service
		st     *story.Story
	)

	BeforeEach(func() {
		store := inmemory.NewDriver()
		gen := llmtest.New("gpt-5-mini").
			Returns("memory_analysis", classifier.Decision{IsMemoryWorthy: true, MemoryType: "event", Confidence: 0.9}).
			Returns("entity_extraction", extractor.Extraction{}).
			Returns("memory_synthesis", synthesis.Narrative{Narrative: "A summer.", Title: "Summer"})

		var err error
		svc, err = pipeline.New(pipeline.Config{
			Store:       store,
			Classifier:  classifier.New(store, gen),
			Extractor:   extractor.New(store, gen),
			Themes:      theme.NewManager(store, theme.NewResolver(nil)),
			Synthesizer: synthesis.New(store, gen),
			Index:       recall.New(store, embeddingstest.New("paris", "lisbon"), vectormem.NewDriver()),
			MaxAttempts: 1,
			RetryDelay:  time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		server = NewServer(Config{}, svc, store, logger.Nop())

		st = &story.Story{Title: "Summer"}
		Expect(svc.CreateStory(context.Background(), st)).To(Succeed())
		for _, body := range []string{"Dinner in Paris.", "A tram ride in Lisbon."} {
			c, err := story.NewContribution(st.ID, "Ana", body)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.AddContribution(context.Background(), c)).To(Succeed())
		}
	})

	get := func(path string) (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, data
	}

	It("returns the closest contributions first", func() {
		resp, data := get("/v1/stories/" + st.ID + "/search?q=" + url.QueryEscape("lisbon trams") + "&limit=1")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var matches []recall.Match
		Expect(json.Unmarshal(data, &matches)).To(Succeed())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Contribution.Body).To(Equal("A tram ride in Lisbon."))
	})

	It("rejects a missing query", func() {
		resp, data := get("/v1/stories/" + st.ID + "/search")
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		Expect(strings.ToLower(string(data))).To(ContainSubstring("query is required"))
	})

	It("rejects an out of range limit", func() {
		resp, _ := get("/v1/stories/" + st.ID + "/search?q=paris&limit=500")
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("returns 404 for unknown stories", func() {
		resp, _ := get("/v1/stories/missing/search?q=paris")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
	})
})
