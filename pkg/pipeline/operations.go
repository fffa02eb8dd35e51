package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/entities"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
)

var (
	// ErrMissingTitle is returned when a story is created without a title.
	ErrMissingTitle = errors.New("story title is required")

	// ErrProcessing wraps a trigger failure after the contribution was
	// stored. The contribution stays and can be reanalyzed.
	ErrProcessing = errors.New("contribution stored but not processed")

	// ErrSearchDisabled is returned by Search when no index is configured.
	ErrSearchDisabled = errors.New("search is not configured")
)

// Stats summarizes pipeline progress for a story.
type Stats struct {
	TotalContributions    int        `json:"total_comments"`
	AnalyzedContributions int        `json:"analyzed_comments"`
	WorthyContributions   int        `json:"memory_worthy_comments"`
	PendingAnalysis       int        `json:"pending_analysis"`
	HasSynthesizedMemory  bool       `json:"has_synthesized_memory"`
	LastSynthesis         *time.Time `json:"last_synthesis"`
}

// Contributor is an author of at least one memory-worthy contribution.
type Contributor struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CreateStory persists a new story.
func (s *Service) CreateStory(ctx context.Context, st *story.Story) error {
	st.Title = strings.TrimSpace(st.Title)
	if st.Title == "" {
		return ErrMissingTitle
	}
	return s.store.CreateStory(ctx, st)
}

// AddContribution persists a contribution and triggers its classification.
func (s *Service) AddContribution(ctx context.Context, c *story.Contribution) error {
	c.Body = strings.TrimSpace(c.Body)
	if c.Body == "" {
		return story.ErrEmptyBody
	}
	if err := s.store.CreateContribution(ctx, c); err != nil {
		return err
	}
	if err := s.dispatch(ctx, Job{Kind: JobClassify, StoryID: c.StoryID(), ContributionID: c.ID}); err != nil {
		return fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return nil
}

// RunContribution runs every stage for one contribution inline, regardless
// of the service mode.
func (s *Service) RunContribution(ctx context.Context, contributionID string) error {
	return s.runInline(ctx, Job{Kind: JobClassify, ContributionID: contributionID})
}

// RunStory classifies pending contributions, extracts entities from worthy
// ones (indexing them when search is configured), then refreshes the theme
// and synthesis, all inline.
func (s *Service) RunStory(ctx context.Context, storyID string) error {
	all, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{})
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.Worthiness() != story.Unanalyzed {
			continue
		}
		if _, err := s.runStage(ctx, Job{Kind: JobClassify, StoryID: storyID, ContributionID: c.ID}); err != nil {
			return err
		}
	}

	worthy, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Worthy})
	if err != nil {
		return err
	}
	for _, c := range worthy {
		if _, err := s.runStage(ctx, Job{Kind: JobExtract, StoryID: storyID, ContributionID: c.ID}); err != nil {
			return err
		}
		if s.index == nil {
			continue
		}
		if _, err := s.runStage(ctx, Job{Kind: JobIndex, StoryID: storyID, ContributionID: c.ID}); err != nil {
			return err
		}
	}

	if _, err := s.runStage(ctx, Job{Kind: JobTheme, StoryID: storyID}); err != nil {
		return err
	}
	_, err = s.runStage(ctx, Job{Kind: JobSynthesize, StoryID: storyID})
	return err
}

// Reanalyze returns a contribution to the unanalyzed state and classifies it again.
func (s *Service) Reanalyze(ctx context.Context, contributionID string) error {
	c, err := s.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	if err := s.store.ResetAnalysis(ctx, contributionID); err != nil {
		return err
	}
	return s.dispatch(ctx, Job{Kind: JobClassify, StoryID: c.StoryID(), ContributionID: c.ID})
}

// ReanalyzePending triggers classification for every unanalyzed contribution
// of the story and returns how many were triggered.
func (s *Service) ReanalyzePending(ctx context.Context, storyID string) (int, error) {
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return 0, err
	}
	pending, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Unanalyzed})
	if err != nil {
		return 0, err
	}
	for i, c := range pending {
		if err := s.dispatch(ctx, Job{Kind: JobClassify, StoryID: storyID, ContributionID: c.ID}); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// RefreshTheme forces a theme analysis with fresh image lookups.
func (s *Service) RefreshTheme(ctx context.Context, storyID string) error {
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return err
	}
	return s.dispatch(ctx, Job{Kind: JobTheme, StoryID: storyID, Force: true})
}

// RegenerateSynthesis triggers synthesis for the story.
func (s *Service) RegenerateSynthesis(ctx context.Context, storyID string) error {
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return err
	}
	return s.dispatch(ctx, Job{Kind: JobSynthesize, StoryID: storyID})
}

// CurrentTheme returns the story's theme, or nil when none was stored yet.
func (s *Service) CurrentTheme(ctx context.Context, storyID string) (*theme.ThemeData, error) {
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	return s.themes.Current(ctx, storyID)
}

// LatestSynthesis returns the current narrative and its revision count, or
// nil when the story was never synthesized.
func (s *Service) LatestSynthesis(ctx context.Context, storyID string) (*synthesis.View, error) {
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	return s.synthesizer.Latest(ctx, storyID)
}

// ProcessingStats reports classification and synthesis progress.
func (s *Service) ProcessingStats(ctx context.Context, storyID string) (Stats, error) {
	all, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{TotalContributions: len(all)}
	for _, c := range all {
		switch c.Worthiness() {
		case story.Worthy:
			st.WorthyContributions++
			st.AnalyzedContributions++
		case story.NotWorthy:
			st.AnalyzedContributions++
		}
	}
	st.PendingAnalysis = st.TotalContributions - st.AnalyzedContributions

	m, err := s.store.GetSynthesis(ctx, storyID)
	switch {
	case err == nil:
		st.HasSynthesizedMemory = true
		generated := m.GeneratedAt
		st.LastSynthesis = &generated
	case !storage.IsNotFound(err):
		return Stats{}, err
	}
	return st, nil
}

// MemoryTypesDistribution counts worthy contributions per memory type.
func (s *Service) MemoryTypesDistribution(ctx context.Context, storyID string) (map[string]int, error) {
	worthy, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Worthy})
	if err != nil {
		return nil, err
	}
	dist := map[string]int{}
	for _, c := range worthy {
		if t := c.MemoryType(); t != "" {
			dist[t]++
		}
	}
	return dist, nil
}

// MemoryContributors lists the distinct authors of worthy contributions in
// order of their first memory.
func (s *Service) MemoryContributors(ctx context.Context, storyID string) ([]Contributor, error) {
	worthy, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Worthy})
	if err != nil {
		return nil, err
	}
	seen := map[Contributor]bool{}
	out := []Contributor{}
	for _, c := range worthy {
		who := Contributor{ID: c.AuthorID, Name: c.AuthorName}
		if seen[who] {
			continue
		}
		seen[who] = true
		out = append(out, who)
	}
	return out, nil
}

// Snapshot renders the state observers are notified with: theme, grouped
// entities, the current synthesis, and worthy contributions in order.
func (s *Service) Snapshot(ctx context.Context, storyID string) (eventstream.Snapshot, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return eventstream.Snapshot{}, err
	}

	themeData, err := s.themes.Current(ctx, storyID)
	if err != nil {
		return eventstream.Snapshot{}, err
	}

	list, err := s.store.ListEntities(ctx, storyID)
	if err != nil {
		return eventstream.Snapshot{}, err
	}

	var synthesized *story.SynthesizedMemory
	m, err := s.store.GetSynthesis(ctx, storyID)
	switch {
	case err == nil:
		synthesized = m
	case !storage.IsNotFound(err):
		return eventstream.Snapshot{}, err
	}

	worthy, err := s.store.ListContributions(ctx, storyID, storage.ContributionFilter{Worthiness: story.Worthy})
	if err != nil {
		return eventstream.Snapshot{}, err
	}

	return eventstream.Snapshot{
		Story:         st,
		Theme:         themeData,
		Entities:      entities.GroupByKind(list),
		Synthesis:     synthesized,
		Contributions: worthy,
	}, nil
}

// Search returns the story's worthy contributions closest to query.
func (s *Service) Search(ctx context.Context, storyID, query string, limit int) ([]recall.Match, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	if _, err := s.store.GetStory(ctx, storyID); err != nil {
		return nil, err
	}
	return s.index.Search(ctx, storyID, query, limit)
}
