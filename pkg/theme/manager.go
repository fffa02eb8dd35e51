package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

// ErrThemeAnalysis wraps failures of a theme run. Theme analysis is safe to retry.
var ErrThemeAnalysis = errors.New("theme analysis failed")

// Store is the persistence the manager needs.
type Store interface {
	storage.StoryStore
	storage.EntityStore
	storage.ThemeStore
}

// Outcome reports a theme run.
type Outcome struct {
	// Previous is the theme before the run, nil when there was none.
	Previous *story.Theme

	// Theme is the stored theme after the run, nil when nothing was selected.
	Theme *story.Theme

	// Changed is true when the background image differs from Previous.
	Changed bool

	// Reused is true when stored images were kept instead of re-resolved.
	Reused bool
}

// ThemeData is the read view of a story's theme.
type ThemeData struct {
	PrimaryEntity      *story.Entity       `json:"primary_entity"`
	BackgroundImageURL *string             `json:"background_image_url"`
	IconPack           *string             `json:"icon_pack"`
	Metadata           story.ThemeMetadata `json:"metadata"`
}

// Manager runs theme analysis for stories.
type Manager struct {
	store    Store
	ranker   *Ranker
	resolver *Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger.Component(l, "theme") }
}

// WithClock sets the time source for scoring and analyzed_at.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithSecondaryLimit sets how many secondary entities are selected.
func WithSecondaryLimit(n int) ManagerOption {
	return func(m *Manager) { m.ranker.secondaryLimit = n }
}

// NewManager creates a Manager. A nil resolver behaves as one without an
// image search credential.
func NewManager(store Store, resolver *Resolver, opts ...ManagerOption) *Manager {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	m := &Manager{
		store:    store,
		resolver: resolver,
		logger:   logger.Nop(),
		now:      time.Now,
	}
	m.ranker = NewRanker(func() time.Time { return m.now() }, DefaultSecondaryLimit)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AnalyzeAndUpdate ranks the story's entities and upserts its theme. Image
// lookups are skipped when the selection matches the stored theme and that
// theme already has a resolved image.
func (m *Manager) AnalyzeAndUpdate(ctx context.Context, storyID string) (Outcome, error) {
	return m.analyze(ctx, storyID, false)
}

// Refresh is AnalyzeAndUpdate with image lookups always performed.
func (m *Manager) Refresh(ctx context.Context, storyID string) (Outcome, error) {
	m.logger.Info("forcing theme refresh", "story_id", storyID)
	return m.analyze(ctx, storyID, true)
}

func (m *Manager) analyze(ctx context.Context, storyID string, force bool) (Outcome, error) {
	s, err := m.store.GetStory(ctx, storyID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrThemeAnalysis, err)
	}
	if !s.ThemingEnabled {
		return Outcome{}, nil
	}

	list, err := m.store.ListEntities(ctx, storyID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: list entities: %w", ErrThemeAnalysis, err)
	}

	previous, err := m.store.GetTheme(ctx, storyID)
	if err != nil && !storage.IsNotFound(err) {
		return Outcome{}, fmt.Errorf("%w: load theme: %w", ErrThemeAnalysis, err)
	}
	out := Outcome{Previous: previous}

	sel := m.ranker.Identify(s, list)
	if sel.Empty() {
		m.logger.Info("no suitable theme entity found", "story_id", storyID)
		return out, nil
	}
	primary := sel.Primary.Entity
	secondary := sel.SecondaryEntities()
	secondaryIDs := entityIDs(secondary)

	var (
		background      string
		secondaryImages []string
	)
	if !force && m.reusable(previous, primary.ID, secondaryIDs) {
		background = previous.ImageURL()
		secondaryImages = previous.Metadata.SecondaryImages
		out.Reused = true
	} else {
		background = m.resolver.Resolve(ctx, primary, Hints{})
		secondaryImages = m.resolver.ResolveSecondary(ctx, secondary, len(secondary))
	}
	if secondaryImages == nil {
		secondaryImages = []string{}
	}

	t := &story.Theme{
		StoryID:            storyID,
		SourceEntityID:     primary.ID,
		BackgroundImageURL: &background,
		Metadata: story.ThemeMetadata{
			AnalyzedAt:         m.now().UTC(),
			SecondaryImages:    secondaryImages,
			SecondaryEntityIDs: secondaryIDs,
			ThemeScore:         sel.Primary.Score,
		},
	}
	if previous != nil {
		t.IconPack = previous.IconPack
	}

	stored, err := m.store.UpsertTheme(ctx, t)
	if err != nil {
		m.logger.Error("failed to update story theme", "story_id", storyID, "error", err)
		return out, fmt.Errorf("%w: upsert: %w", ErrThemeAnalysis, err)
	}
	out.Theme = stored
	out.Changed = story.ThemeChanged(previous, stored)

	m.logger.Info("theme analysis completed",
		"story_id", storyID,
		"entity", primary.Name,
		"entity_type", primary.Kind,
		"score", sel.Primary.Score,
		"changed", out.Changed,
		"reused", out.Reused,
	)
	return out, nil
}

// reusable reports whether the stored theme already reflects this selection
// with an image worth keeping. The fallback image is not worth keeping while
// a searcher is configured.
func (m *Manager) reusable(previous *story.Theme, primaryID string, secondaryIDs []string) bool {
	if !previous.HasBackgroundImage() {
		return false
	}
	if previous.SourceEntityID != primaryID || !slices.Equal(previous.Metadata.SecondaryEntityIDs, secondaryIDs) {
		return false
	}
	if m.resolver.Enabled() && previous.ImageURL() == story.DefaultImageURL {
		return false
	}
	return true
}

// Current returns the story's theme, or nil when it has none.
func (m *Manager) Current(ctx context.Context, storyID string) (*ThemeData, error) {
	t, err := m.store.GetTheme(ctx, storyID)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ThemeData{
		PrimaryEntity:      t.SourceEntity,
		BackgroundImageURL: t.BackgroundImageURL,
		IconPack:           t.IconPack,
		Metadata:           t.Metadata,
	}, nil
}

// HasValidTheme reports whether the story has a theme with a background image.
func (m *Manager) HasValidTheme(ctx context.Context, storyID string) bool {
	t, err := m.store.GetTheme(ctx, storyID)
	if err != nil {
		if !storage.IsNotFound(err) {
			m.logger.Warn("failed to load theme", "story_id", storyID, "error", err)
		}
		return false
	}
	return t.HasBackgroundImage()
}

func entityIDs(list []*story.Entity) []string {
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	return ids
}
