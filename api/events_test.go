package api

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/classifier"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/eventstream/broadcast"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/llm/llmtest"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/sse"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
)

var _ = Describe("Story event stream", func() {
	var (
		server  *Server
		broker  *broadcast.Broker
		baseURL string
		served  chan error
	)

	BeforeEach(func() {
		store := inmemory.NewDriver()
		gen := llmtest.New("gpt-5-mini").
			Returns("memory_analysis", classifier.Decision{IsMemoryWorthy: true, MemoryType: "event", Confidence: 0.9}).
			Returns("entity_extraction", extractor.Extraction{
				Places: []extractor.Place{{Name: "Lisbon", Type: "city", Confidence: 0.9}},
			}).
			Returns("memory_synthesis", synthesis.Narrative{Narrative: "Lisbon in spring.", Title: "Lisbon"})

		broker = broadcast.New()
		svc, err := pipeline.New(pipeline.Config{
			Store:       store,
			Classifier:  classifier.New(store, gen),
			Extractor:   extractor.New(store, gen),
			Themes:      theme.NewManager(store, theme.NewResolver(nil)),
			Synthesizer: synthesis.New(store, gen),
			Publisher:   broker,
			MaxAttempts: 1,
			RetryDelay:  time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{Events: broker, KeepAlive: 50 * time.Millisecond}, svc, store, logger.Nop())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		baseURL = "http://" + ln.Addr().String()

		served = make(chan error, 1)
		go func() { served <- server.Serve(ln) }()

		DeferCleanup(func() {
			Expect(broker.Close()).To(Succeed())
			Expect(server.Shutdown()).To(Succeed())
			Eventually(served).Should(Receive())
		})
	})

	postJSON := func(path string, body any) *http.Response {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(baseURL+path, fiber.MIMEApplicationJSON, bytes.NewReader(raw))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	follow := func(storyID string) <-chan *sse.Event {
		resp, err := http.Get(baseURL + "/v1/stories/" + storyID + "/events")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(resp.Header.Get(fiber.HeaderContentType)).To(HavePrefix("text/event-stream"))
		DeferCleanup(resp.Body.Close)

		out := make(chan *sse.Event, 16)
		go func() {
			defer close(out)
			r := sse.NewReader(resp.Body)
			for {
				ev, err := r.Next()
				if err != nil || ev == nil {
					return
				}
				out <- ev
			}
		}()
		return out
	}

	decode := func(ev *sse.Event) eventstream.StoryEvent {
		var out eventstream.StoryEvent
		Expect(json.Unmarshal([]byte(ev.Data), &out)).To(Succeed())
		Expect(out.EventID).To(Equal(ev.ID))
		Expect(out.EventType).To(Equal(ev.Type))
		return out
	}

	It("starts with a snapshot and streams pipeline updates", func() {
		resp := postJSON("/v1/stories", CreateStoryRequest{Title: "Spring"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))
		var st story.Story
		Expect(json.NewDecoder(resp.Body).Decode(&st)).To(Succeed())

		events := follow(st.ID)

		var first *sse.Event
		Eventually(events).Should(Receive(&first))
		Expect(first.Type).To(Equal(EventTypeSnapshot))
		Expect(decode(first).Payload.Story.Title).To(Equal("Spring"))
		Eventually(func() int { return broker.Subscribers(st.ID) }).Should(Equal(1))

		resp = postJSON("/v1/stories/"+st.ID+"/contributions", CreateContributionRequest{
			AuthorName: "Ana",
			Body:       "We walked through Lisbon in spring.",
		})
		Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))

		var got []string
		Eventually(func() []string {
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return got
					}
					got = append(got, ev.Type)
					if ev.Type == eventstream.EventTypeSynthesisUpdated {
						Expect(decode(ev).Payload.Synthesis.Metadata.Title).To(Equal("Lisbon"))
					}
				default:
					return got
				}
			}
		}).Should(ContainElements(eventstream.EventTypeThemeChanged, eventstream.EventTypeSynthesisUpdated))
	})

	It("returns 404 for unknown stories", func() {
		resp, err := http.Get(baseURL + "/v1/stories/missing/events")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
	})
})

var _ = Describe("Story event stream without a subscriber", func() {
	It("answers 404", func() {
		server := NewServer(Config{}, nil, inmemory.NewDriver(), logger.Nop())
		req, err := http.NewRequest(http.MethodGet, "/v1/stories/s1/events", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
	})
})
