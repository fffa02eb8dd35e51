// Package classifier decides whether a contribution is memory-worthy.
//
// Classification runs at most once per contribution and fails closed: when
// the model cannot be reached the contribution is recorded as not worthy
// with the error in its analysis, so the pipeline never retries it forever.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

const schemaName = "memory_analysis"

// Store is the persistence the classifier needs.
type Store interface {
	storage.StoryStore
	storage.ContributionStore
}

// Decision is the structured output requested from the model.
type Decision struct {
	IsMemoryWorthy bool     `json:"is_memory_worthy" jsonschema_description:"Whether this comment contains a substantive memory worth including in the final story"`
	Reasoning      string   `json:"reasoning" jsonschema_description:"Detailed reasoning for the memory-worthiness decision"`
	MemoryType     string   `json:"memory_type" jsonschema_description:"Type of memory (event, conversation, observation, feeling, other)"`
	Confidence     float64  `json:"confidence" jsonschema_description:"Confidence level 0-1 for the analysis"`
	KeyDetails     []string `json:"key_details" jsonschema_description:"Key details or facts mentioned in the comment"`
}

// Result reports what Classify did.
type Result struct {
	// Worthy is true when the contribution is (or already was) memory-worthy.
	Worthy bool

	// Skipped is true when the contribution had already been classified.
	Skipped bool

	// Failed is true when the model call failed and the contribution was
	// recorded as not worthy.
	Failed bool
}

// Classifier runs memory-worthiness analysis.
type Classifier struct {
	store  Store
	gen    llm.Generator
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.logger = logger.Component(l, "classifier") }
}

// WithModel overrides the generator's default model.
func WithModel(model string) Option {
	return func(c *Classifier) { c.model = model }
}

// WithClock sets the time source for analyzed_at.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New creates a Classifier.
func New(store Store, gen llm.Generator, opts ...Option) *Classifier {
	c := &Classifier{
		store:  store,
		gen:    gen,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify analyzes the contribution unless it was already classified.
// Model failures are recorded, not returned; errors come only from storage.
func (c *Classifier) Classify(ctx context.Context, contributionID string) (Result, error) {
	contribution, err := c.store.GetContribution(ctx, contributionID)
	if err != nil {
		return Result{}, err
	}
	if contribution.MemoryWorthy != nil {
		return Result{Worthy: *contribution.MemoryWorthy, Skipped: true}, nil
	}

	owner, err := storage.ResolveOwner(ctx, c.store, contribution.Owner)
	if err != nil {
		return Result{}, err
	}

	decision, genErr := llm.Generate[Decision](ctx, c.gen, llm.Request{
		Name:        schemaName,
		Description: "Memory-worthiness analysis of a story comment",
		Prompt:      Prompt(owner, contribution),
		Model:       c.model,
		Temperature: llm.Temperature(1.0),
	})

	var (
		worthy   bool
		analysis *story.Analysis
		result   Result
	)
	switch {
	case genErr != nil:
		c.logger.Error("classification failed, marking not worthy",
			"contribution_id", contributionID,
			"error", genErr,
		)
		analysis = &story.Analysis{Error: genErr.Error(), AnalyzedAt: c.now().UTC()}
		result.Failed = true
	case decision.IsMemoryWorthy:
		worthy = true
		analysis = &story.Analysis{
			Reasoning:  decision.Reasoning,
			MemoryType: decision.MemoryType,
			Confidence: decision.Confidence,
			KeyDetails: decision.KeyDetails,
			AnalyzedAt: c.now().UTC(),
		}
	default:
		analysis = &story.Analysis{Reasoning: decision.Reasoning, AnalyzedAt: c.now().UTC()}
	}

	applied, err := c.store.RecordAnalysis(ctx, contributionID, worthy, analysis)
	if err != nil {
		return Result{}, fmt.Errorf("record analysis: %w", err)
	}
	if !applied {
		// Another run classified it first; report what it decided.
		current, err := c.store.GetContribution(ctx, contributionID)
		if err != nil {
			return Result{}, err
		}
		return Result{Worthy: current.IsWorthy(), Skipped: true}, nil
	}

	result.Worthy = worthy
	c.logger.Debug("classified contribution",
		"contribution_id", contributionID,
		"story_id", contribution.StoryID(),
		"worthy", worthy,
		"memory_type", analysis.MemoryType,
	)
	return result, nil
}
