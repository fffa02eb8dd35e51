package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/storyline/pkg/classifier"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/imagesearch"
	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/llm/llmtest"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.StoryEvent
}

func (p *recordingPublisher) PublishStoryEvent(_ context.Context, e *eventstream.StoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(eventType string) *eventstream.StoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].EventType == eventType {
			return p.events[i]
		}
	}
	return nil
}

// imageSearcher answers every query with the current url.
type imageSearcher struct {
	mu  sync.Mutex
	url string
}

func (s *imageSearcher) Search(context.Context, imagesearch.Query) ([]imagesearch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []imagesearch.Result{{URLs: imagesearch.URLs{Regular: s.url}}}, nil
}

func (s *imageSearcher) set(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

// scriptedGenerator classifies bodies containing "lunch?" as not worthy and
// extracts Paris from anything mentioning it, with the confidence taken from
// a "(conf N)" marker.
func scriptedGenerator() *llmtest.Generator {
	gen := llmtest.New("gpt-5-mini")
	gen.On("memory_analysis", func(req llm.Request) (string, error) {
		worthy := !strings.Contains(req.Prompt, "lunch?")
		return marshal(classifier.Decision{
			IsMemoryWorthy: worthy,
			Reasoning:      "scripted",
			MemoryType:     "event",
			Confidence:     0.9,
			KeyDetails:     []string{"Paris"},
		}), nil
	})
	gen.On("entity_extraction", func(req llm.Request) (string, error) {
		var out extractor.Extraction
		if strings.Contains(req.Prompt, "Paris") {
			conf := 0.9
			if strings.Contains(req.Prompt, "(conf 0.8)") {
				conf = 0.8
			}
			out.Places = []extractor.Place{{Name: "Paris", Type: "city", Confidence: conf}}
		}
		return marshal(out), nil
	})
	gen.Returns("memory_synthesis", synthesis.Narrative{
		Narrative: "They spent a summer in Paris.",
		Title:     "Paris",
		Summary:   "A trip.",
		Themes:    []string{"travel"},
	})
	return gen
}

type harness struct {
	store     *inmemory.Driver
	gen       *llmtest.Generator
	searcher  *imageSearcher
	publisher *recordingPublisher
	service   *pipeline.Service
	clock     *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *clock) current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newHarness(async bool) *harness {
	h := &harness{
		store:     inmemory.NewDriver(),
		gen:       scriptedGenerator(),
		searcher:  &imageSearcher{url: "https://img.example/paris.jpg"},
		publisher: &recordingPublisher{},
		clock:     &clock{now: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.store.SetClock(h.clock.tick)

	svc, err := pipeline.New(pipeline.Config{
		Store:       h.store,
		Classifier:  classifier.New(h.store, h.gen),
		Extractor:   extractor.New(h.store, h.gen),
		Themes:      theme.NewManager(h.store, theme.NewResolver(h.searcher), theme.WithClock(h.clock.current)),
		Synthesizer: synthesis.New(h.store, h.gen),
		Publisher:   h.publisher,
		Async:       async,
		RetryDelay:  time.Millisecond,
		Now:         h.clock.current,
	})
	Expect(err).NotTo(HaveOccurred())
	h.service = svc
	return h
}
