// Package extractor pulls people, places, and things out of a contribution
// and records them as story entities.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

const (
	// DefaultMinConfidence is the inclusive floor for persisting a candidate.
	DefaultMinConfidence = 0.5

	schemaName = "entity_extraction"
)

// ErrExtractionFailed wraps model failures. Extraction is safe to retry.
var ErrExtractionFailed = errors.New("entity extraction failed")

// Store is the persistence the extractor needs.
type Store interface {
	storage.StoryStore
	storage.ContributionStore
	storage.EntityStore
}

// Person is an extracted person.
type Person struct {
	Name         string  `json:"name" jsonschema_description:"Full name of the person"`
	Relationship string  `json:"relationship" jsonschema_description:"Relationship to the author (friend, family, colleague, etc.)"`
	Confidence   float64 `json:"confidence" jsonschema_description:"Confidence score 0-1"`
}

// Place is an extracted place.
type Place struct {
	Name       string  `json:"name" jsonschema_description:"Name of the place"`
	Type       string  `json:"type" jsonschema_description:"Type of place (restaurant, park, city, etc.)"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence score 0-1"`
}

// Thing is an extracted object, activity, or event.
type Thing struct {
	Name       string  `json:"name" jsonschema_description:"Name of the thing"`
	Category   string  `json:"category" jsonschema_description:"Category (object, activity, event, emotion, etc.)"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence score 0-1"`
}

// Extraction is the structured output requested from the model.
type Extraction struct {
	People []Person `json:"people" jsonschema_description:"People mentioned in the memory"`
	Places []Place  `json:"places" jsonschema_description:"Places mentioned in the memory"`
	Things []Thing  `json:"things" jsonschema_description:"Important objects, activities, or events mentioned"`
}

// Candidates flattens the extraction into typed candidates, preserving the
// people, places, things order.
func (e Extraction) Candidates() []story.Candidate {
	out := make([]story.Candidate, 0, len(e.People)+len(e.Places)+len(e.Things))
	for _, p := range e.People {
		out = append(out, story.Candidate{Name: p.Name, Kind: story.Person, Confidence: p.Confidence})
	}
	for _, p := range e.Places {
		out = append(out, story.Candidate{Name: p.Name, Kind: story.Place, Confidence: p.Confidence})
	}
	for _, t := range e.Things {
		out = append(out, story.Candidate{Name: t.Name, Kind: story.Thing, Confidence: t.Confidence})
	}
	return out
}

// Summary counts the candidates of one extraction. People, Places, Things,
// and Total count what the model returned; the rest count what was kept.
type Summary struct {
	People      int `json:"people"`
	Places      int `json:"places"`
	Things      int `json:"things"`
	Total       int `json:"total"`
	Accepted    int `json:"accepted"`
	Discarded   int `json:"discarded"`
	NewEntities int `json:"new_entities"`
	NewMentions int `json:"new_mentions"`
}

// Extractor runs entity extraction.
type Extractor struct {
	store Store
	gen   llm.Generator

	// model is empty unless configured, deferring to the generator's default.
	model         string
	minConfidence float64
	logger        *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger.Component(l, "extractor") }
}

// WithModel sets the extraction model. An empty model uses the generator's default.
func WithModel(model string) Option {
	return func(e *Extractor) { e.model = model }
}

// WithMinConfidence sets the inclusive confidence floor.
func WithMinConfidence(min float64) Option {
	return func(e *Extractor) { e.minConfidence = min }
}

// New creates an Extractor.
func New(store Store, gen llm.Generator, opts ...Option) *Extractor {
	e := &Extractor{
		store:         store,
		gen:           gen,
		minConfidence: DefaultMinConfidence,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs extraction for one contribution and records accepted
// candidates. Re-running on the same contribution adds nothing new.
func (e *Extractor) Extract(ctx context.Context, contributionID string) (Summary, error) {
	contribution, err := e.store.GetContribution(ctx, contributionID)
	if err != nil {
		return Summary{}, err
	}
	if strings.TrimSpace(contribution.Body) == "" {
		return Summary{}, nil
	}

	owner, err := storage.ResolveOwner(ctx, e.store, contribution.Owner)
	if err != nil {
		return Summary{}, err
	}

	extraction, err := llm.Generate[Extraction](ctx, e.gen, llm.Request{
		Name:        schemaName,
		Description: "People, places, and things mentioned in a memory",
		Prompt:      Prompt(owner, contribution),
		Model:       e.model,
		Temperature: llm.Temperature(1.0),
	})
	if err != nil {
		e.logger.Error("extraction failed",
			"contribution_id", contributionID,
			"error", err,
		)
		return Summary{}, fmt.Errorf("%w: contribution %s: %w", ErrExtractionFailed, contributionID, err)
	}

	summary := Summary{
		People: len(extraction.People),
		Places: len(extraction.Places),
		Things: len(extraction.Things),
	}
	summary.Total = summary.People + summary.Places + summary.Things

	accepted := e.filter(extraction.Candidates())
	summary.Accepted = len(accepted)
	summary.Discarded = summary.Total - summary.Accepted

	if len(accepted) > 0 {
		res, err := e.store.RecordMentions(ctx, contribution, accepted)
		if err != nil {
			return Summary{}, fmt.Errorf("record mentions: %w", err)
		}
		summary.NewEntities = res.NewEntities
		summary.NewMentions = res.NewMentions
	}

	e.logger.Debug("extracted entities",
		"contribution_id", contributionID,
		"story_id", contribution.StoryID(),
		"total", summary.Total,
		"accepted", summary.Accepted,
		"new_entities", summary.NewEntities,
	)
	return summary, nil
}

func (e *Extractor) filter(candidates []story.Candidate) []story.Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.Name) == "" || c.Confidence < e.minConfidence {
			continue
		}
		c.Name = strings.TrimSpace(c.Name)
		out = append(out, c)
	}
	return out
}
