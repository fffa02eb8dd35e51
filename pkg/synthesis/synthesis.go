// Package synthesis compresses a story's memory-worthy contributions into a
// single narrative and keeps its revision history.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

const schemaName = "memory_synthesis"

// ErrSynthesisFailed wraps failures of a synthesis run. Synthesis is safe to retry.
var ErrSynthesisFailed = errors.New("memory synthesis failed")

// Store is the persistence the synthesizer needs.
type Store interface {
	storage.StoryStore
	storage.ContributionStore
	storage.SynthesisStore
}

// Stats is the model's own account of the memories it used.
type Stats struct {
	TotalMemories   float64 `json:"total_memories" jsonschema_description:"Number of memories used"`
	TimeSpanDays    float64 `json:"time_span_days" jsonschema_description:"Time span covered in days"`
	PrimaryLocation string  `json:"primary_location" jsonschema_description:"Primary location if identifiable"`
}

// Narrative is the structured output requested from the model.
type Narrative struct {
	Narrative  string   `json:"narrative" jsonschema_description:"The synthesized narrative in third-person perspective"`
	Title      string   `json:"title" jsonschema_description:"A compelling title for the synthesized story"`
	Summary    string   `json:"summary" jsonschema_description:"A brief summary of the key events and themes"`
	Themes     []string `json:"themes" jsonschema_description:"Main themes that emerge from the memories"`
	KeyMoments []string `json:"key_moments" jsonschema_description:"The most significant moments or turning points"`
	Metadata   Stats    `json:"metadata" jsonschema_description:"Additional metadata about the synthesis"`
}

// View is the current narrative with the size of its history.
type View struct {
	Memory        *story.SynthesizedMemory `json:"memory"`
	RevisionCount int                      `json:"revision_count"`
}

// Synthesizer runs narrative synthesis.
type Synthesizer struct {
	store  Store
	gen    llm.Generator
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger.Component(l, "synthesis") }
}

// WithModel overrides the generator's default model.
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithClock sets the time source for generated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New creates a Synthesizer.
func New(store Store, gen llm.Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		store:  store,
		gen:    gen,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize regenerates the story's narrative from its worthy contributions
// and stores it as a new revision. It returns nil when the story has no
// worthy contributions.
func (s *Synthesizer) Synthesize(ctx context.Context, storyID string) (*story.SynthesizedMemory, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	memories, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Worthy})
	if err != nil {
		return nil, fmt.Errorf("%w: list contributions: %w", ErrSynthesisFailed, err)
	}
	if len(memories) == 0 {
		return nil, nil
	}

	req := llm.Request{
		Name:        schemaName,
		Description: "Third-person narrative synthesized from story memories",
		Prompt:      Prompt(st, memories),
		Model:       s.model,
	}
	out, err := llm.Generate[Narrative](ctx, s.gen, req)
	if err != nil {
		s.logger.Error("synthesis failed", "story_id", storyID, "error", err)
		return nil, fmt.Errorf("%w: story %s: %w", ErrSynthesisFailed, storyID, err)
	}

	generatedAt := s.now().UTC()
	memory := &story.SynthesizedMemory{
		StoryID:     storyID,
		Content:     out.Narrative,
		GeneratedAt: generatedAt,
		Metadata: story.SynthesisMetadata{
			Title:      out.Title,
			Summary:    out.Summary,
			Themes:     nonNil(out.Themes),
			KeyMoments: nonNil(out.KeyMoments),
			Narrative: story.NarrativeMetadata{
				TotalMemories:   int(math.Round(out.Metadata.TotalMemories)),
				TimeSpanDays:    int(math.Round(out.Metadata.TimeSpanDays)),
				PrimaryLocation: out.Metadata.PrimaryLocation,
			},
			IncludedContributionIDs: contributionIDs(memories),
			Generation: story.GenerationDetails{
				ModelUsed:     llm.ModelFor(s.gen, req),
				GeneratedAt:   generatedAt,
				TotalMemories: len(memories),
				MemoryTypes:   memoryTypes(memories),
			},
		},
	}

	stored, err := s.store.SaveSynthesis(ctx, memory)
	if err != nil {
		return nil, fmt.Errorf("%w: save: %w", ErrSynthesisFailed, err)
	}

	s.logger.Info("synthesized story",
		"story_id", storyID,
		"memories", len(memories),
		"revision", stored.Revision,
	)
	return stored, nil
}

// Latest returns the current narrative with its revision count, or nil when
// the story has never been synthesized.
func (s *Synthesizer) Latest(ctx context.Context, storyID string) (*View, error) {
	m, err := s.store.GetSynthesis(ctx, storyID)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	revisions, err := s.store.ListRevisions(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return &View{Memory: m, RevisionCount: len(revisions)}, nil
}

func contributionIDs(list []*story.Contribution) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

// memoryTypes returns the distinct memory types in first-seen order.
func memoryTypes(list []*story.Contribution) []string {
	seen := map[string]bool{}
	types := []string{}
	for _, c := range list {
		t := c.MemoryType()
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
