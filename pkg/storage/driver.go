// Package storage defines the persistence contract for storyline.
package storage

import (
	"context"

	"github.com/papercomputeco/storyline/pkg/story"
)

// Driver is the full persistence surface used by the pipeline. Every
// uniqueness rule the pipeline relies on (one theme per story, one synthesis
// per story, entity and mention dedup) is enforced by the driver, not the caller.
type Driver interface {
	StoryStore
	ContributionStore
	EntityStore
	ThemeStore
	SynthesisStore

	// Close closes the store and releases any resources.
	Close() error
}

// StoryStore persists stories.
type StoryStore interface {
	// CreateStory inserts s, assigning ID and CreatedAt when unset.
	CreateStory(ctx context.Context, s *story.Story) error

	// GetStory returns the story or a NotFoundError.
	GetStory(ctx context.Context, id string) (*story.Story, error)

	// ListStories returns every story ordered by creation.
	ListStories(ctx context.Context) ([]*story.Story, error)

	// DeleteStory removes the story and everything it owns.
	DeleteStory(ctx context.Context, id string) error
}

// ContributionStore persists contributions and their classification.
type ContributionStore interface {
	// CreateContribution inserts c, assigning ID and CreatedAt when unset.
	CreateContribution(ctx context.Context, c *story.Contribution) error

	// GetContribution returns the contribution or a NotFoundError.
	GetContribution(ctx context.Context, id string) (*story.Contribution, error)

	// ListContributions returns a story's contributions in chronological
	// order (see story.Chronological), optionally filtered by worthiness.
	ListContributions(ctx context.Context, storyID string, filter ContributionFilter) ([]*story.Contribution, error)

	// RecordAnalysis stores the classification only if the contribution is
	// still unanalyzed. It reports whether the write was applied.
	RecordAnalysis(ctx context.Context, id string, worthy bool, analysis *story.Analysis) (bool, error)

	// ResetAnalysis returns a contribution to the unanalyzed state.
	ResetAnalysis(ctx context.Context, id string) error
}

// ContributionFilter narrows ListContributions. The zero value matches all.
type ContributionFilter struct {
	Worthiness story.Worthiness
}

// EntityStore persists entities and mentions.
type EntityStore interface {
	// RecordMentions finds or creates an entity per candidate and links it to
	// the contribution, all within one transaction. Existing entities and
	// mentions are left untouched.
	RecordMentions(ctx context.Context, c *story.Contribution, candidates []story.Candidate) (MentionResult, error)

	// ListEntities returns a story's entities with their mentions loaded,
	// ordered by creation.
	ListEntities(ctx context.Context, storyID string) ([]*story.Entity, error)

	// GetEntity returns the entity with its mentions or a NotFoundError.
	GetEntity(ctx context.Context, id string) (*story.Entity, error)
}

// MentionResult counts what RecordMentions actually wrote.
type MentionResult struct {
	NewEntities int
	NewMentions int
}

// ThemeStore persists the single theme of a story.
type ThemeStore interface {
	// GetTheme returns the story's theme or a NotFoundError.
	GetTheme(ctx context.Context, storyID string) (*story.Theme, error)

	// UpsertTheme creates or replaces the story's theme keyed on StoryID and
	// returns the stored row.
	UpsertTheme(ctx context.Context, t *story.Theme) (*story.Theme, error)
}

// SynthesisStore persists the current narrative and its revision history.
type SynthesisStore interface {
	// GetSynthesis returns the current narrative or a NotFoundError.
	GetSynthesis(ctx context.Context, storyID string) (*story.SynthesizedMemory, error)

	// SaveSynthesis replaces the current narrative and appends a revision in
	// one transaction. The stored revision number is returned on the result.
	SaveSynthesis(ctx context.Context, m *story.SynthesizedMemory) (*story.SynthesizedMemory, error)

	// ListRevisions returns the history oldest first.
	ListRevisions(ctx context.Context, storyID string) ([]*story.Revision, error)
}
