// Package inmemory provides a map-backed storage.Driver with the same
// uniqueness and ordering guarantees as the SQL drivers.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var _ storage.Driver = (*Driver)(nil)

type entityKey struct {
	storyID string
	nameKey string
	kind    story.EntityKind
}

type mentionKey struct {
	entityID       string
	contributionID string
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map below
	mu sync.RWMutex

	stories       map[string]*story.Story
	contributions map[string]*story.Contribution
	entities      map[string]*story.Entity
	entityIndex   map[entityKey]string
	mentions      map[mentionKey]story.Mention
	themes        map[string]*story.Theme
	syntheses     map[string]*story.SynthesizedMemory
	revisions     map[string][]*story.Revision

	now func() time.Time
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		stories:       make(map[string]*story.Story),
		contributions: make(map[string]*story.Contribution),
		entities:      make(map[string]*story.Entity),
		entityIndex:   make(map[entityKey]string),
		mentions:      make(map[mentionKey]story.Mention),
		themes:        make(map[string]*story.Theme),
		syntheses:     make(map[string]*story.SynthesizedMemory),
		revisions:     make(map[string][]*story.Revision),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (d *Driver) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// CreateStory inserts a story.
func (d *Driver) CreateStory(_ context.Context, s *story.Story) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, ok := d.stories[s.ID]; ok {
		return fmt.Errorf("could not create story: duplicate id %s", s.ID)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = d.now()
	}
	cp := *s
	d.stories[s.ID] = &cp
	return nil
}

// GetStory retrieves a story by id.
func (d *Driver) GetStory(_ context.Context, id string) (*story.Story, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.stories[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "story", ID: id}
	}
	cp := *s
	return &cp, nil
}

// ListStories returns all stories ordered by creation.
func (d *Driver) ListStories(_ context.Context) ([]*story.Story, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*story.Story, 0, len(d.stories))
	for _, s := range d.stories {
		cp := *s
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *story.Story) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// DeleteStory removes a story and everything it owns.
func (d *Driver) DeleteStory(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stories[id]; !ok {
		return storage.NotFoundError{Kind: "story", ID: id}
	}
	delete(d.stories, id)
	delete(d.themes, id)
	delete(d.syntheses, id)
	delete(d.revisions, id)

	for cid, c := range d.contributions {
		if c.StoryID() == id {
			delete(d.contributions, cid)
		}
	}
	for eid, e := range d.entities {
		if e.StoryID != id {
			continue
		}
		delete(d.entities, eid)
		delete(d.entityIndex, entityKey{storyID: id, nameKey: story.NormalizeName(e.Name), kind: e.Kind})
		for k := range d.mentions {
			if k.entityID == eid {
				delete(d.mentions, k)
			}
		}
	}
	return nil
}

// CreateContribution inserts a contribution. The owner must be an existing story.
func (d *Driver) CreateContribution(_ context.Context, c *story.Contribution) error {
	if c.Owner.Kind != story.OwnerStory {
		return fmt.Errorf("%w: %q", story.ErrUnsupportedOwner, c.Owner.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stories[c.Owner.ID]; !ok {
		return storage.NotFoundError{Kind: "story", ID: c.Owner.ID}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = d.now()
	}
	d.contributions[c.ID] = copyContribution(c)
	return nil
}

// GetContribution retrieves a contribution by id.
func (d *Driver) GetContribution(_ context.Context, id string) (*story.Contribution, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.contributions[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "contribution", ID: id}
	}
	return copyContribution(c), nil
}

// ListContributions returns a story's contributions in chronological order.
func (d *Driver) ListContributions(_ context.Context, storyID string, filter storage.ContributionFilter) ([]*story.Contribution, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*story.Contribution
	for _, c := range d.contributions {
		if c.StoryID() != storyID {
			continue
		}
		if filter.Worthiness != "" && c.Worthiness() != filter.Worthiness {
			continue
		}
		out = append(out, copyContribution(c))
	}
	slices.SortFunc(out, story.Chronological)
	return out, nil
}

// RecordAnalysis writes the classification only while the contribution is unanalyzed.
func (d *Driver) RecordAnalysis(_ context.Context, id string, worthy bool, analysis *story.Analysis) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.contributions[id]
	if !ok {
		return false, storage.NotFoundError{Kind: "contribution", ID: id}
	}
	if c.MemoryWorthy != nil {
		return false, nil
	}
	c.MemoryWorthy = &worthy
	c.Analysis = copyAnalysis(analysis)
	return true, nil
}

// ResetAnalysis clears the classification.
func (d *Driver) ResetAnalysis(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.contributions[id]
	if !ok {
		return storage.NotFoundError{Kind: "contribution", ID: id}
	}
	c.MemoryWorthy = nil
	c.Analysis = nil
	return nil
}

// RecordMentions finds or creates entities and links them to the contribution.
func (d *Driver) RecordMentions(_ context.Context, c *story.Contribution, candidates []story.Candidate) (storage.MentionResult, error) {
	var result storage.MentionResult
	storyID := c.StoryID()
	if storyID == "" {
		return result, fmt.Errorf("%w: %q", story.ErrUnsupportedOwner, c.Owner.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stories[storyID]; !ok {
		return result, storage.NotFoundError{Kind: "story", ID: storyID}
	}
	if _, ok := d.contributions[c.ID]; !ok {
		return result, storage.NotFoundError{Kind: "contribution", ID: c.ID}
	}

	now := d.now()
	for _, cand := range candidates {
		name := strings.TrimSpace(cand.Name)
		key := entityKey{storyID: storyID, nameKey: story.NormalizeName(name), kind: cand.Kind}
		if key.nameKey == "" || !cand.Kind.Valid() {
			continue
		}

		entityID, ok := d.entityIndex[key]
		if !ok {
			entityID = uuid.NewString()
			d.entities[entityID] = &story.Entity{
				ID:        entityID,
				StoryID:   storyID,
				Name:      name,
				Kind:      cand.Kind,
				CreatedAt: now,
			}
			d.entityIndex[key] = entityID
			result.NewEntities++
		}

		mk := mentionKey{entityID: entityID, contributionID: c.ID}
		if _, ok := d.mentions[mk]; ok {
			continue
		}
		d.mentions[mk] = story.Mention{
			EntityID:       entityID,
			ContributionID: c.ID,
			Confidence:     cand.Confidence,
			MentionedAt:    c.CreatedAt.UTC(),
		}
		result.NewMentions++
	}
	return result, nil
}

// ListEntities returns a story's entities with mentions, ordered by creation.
func (d *Driver) ListEntities(_ context.Context, storyID string) ([]*story.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*story.Entity
	for _, e := range d.entities {
		if e.StoryID == storyID {
			out = append(out, d.entityWithMentions(e))
		}
	}
	slices.SortFunc(out, func(a, b *story.Entity) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetEntity retrieves an entity and its mentions.
func (d *Driver) GetEntity(_ context.Context, id string) (*story.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entities[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "entity", ID: id}
	}
	return d.entityWithMentions(e), nil
}

// entityWithMentions must be called with mu held.
func (d *Driver) entityWithMentions(e *story.Entity) *story.Entity {
	cp := *e
	cp.Mentions = nil
	for k, m := range d.mentions {
		if k.entityID == e.ID {
			cp.Mentions = append(cp.Mentions, m)
		}
	}
	slices.SortFunc(cp.Mentions, func(a, b story.Mention) int {
		if c := a.MentionedAt.Compare(b.MentionedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ContributionID, b.ContributionID)
	})
	return &cp
}

// GetTheme retrieves a story's theme with its source entity.
func (d *Driver) GetTheme(_ context.Context, storyID string) (*story.Theme, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.themes[storyID]
	if !ok {
		return nil, storage.NotFoundError{Kind: "theme", ID: storyID}
	}
	return d.themeWithEntity(t), nil
}

// UpsertTheme creates or replaces the story's theme.
func (d *Driver) UpsertTheme(_ context.Context, t *story.Theme) (*story.Theme, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stories[t.StoryID]; !ok {
		return nil, storage.NotFoundError{Kind: "story", ID: t.StoryID}
	}

	now := d.now()
	stored := copyTheme(t)
	stored.SourceEntity = nil
	stored.UpdatedAt = now
	if existing, ok := d.themes[t.StoryID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		stored.CreatedAt = now
	}
	d.themes[t.StoryID] = stored
	return d.themeWithEntity(stored), nil
}

// themeWithEntity must be called with mu held.
func (d *Driver) themeWithEntity(t *story.Theme) *story.Theme {
	cp := copyTheme(t)
	if e, ok := d.entities[t.SourceEntityID]; ok {
		cp.SourceEntity = d.entityWithMentions(e)
	}
	return cp
}

// GetSynthesis retrieves the current narrative for a story.
func (d *Driver) GetSynthesis(_ context.Context, storyID string) (*story.SynthesizedMemory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.syntheses[storyID]
	if !ok {
		return nil, storage.NotFoundError{Kind: "synthesized memory", ID: storyID}
	}
	cp := *m
	return &cp, nil
}

// SaveSynthesis appends a revision and replaces the current narrative.
func (d *Driver) SaveSynthesis(_ context.Context, m *story.SynthesizedMemory) (*story.SynthesizedMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.stories[m.StoryID]; !ok {
		return nil, storage.NotFoundError{Kind: "story", ID: m.StoryID}
	}

	now := d.now()
	next := len(d.revisions[m.StoryID]) + 1
	d.revisions[m.StoryID] = append(d.revisions[m.StoryID], &story.Revision{
		StoryID:   m.StoryID,
		Revision:  next,
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: now,
	})

	stored := *m
	stored.Revision = next
	stored.UpdatedAt = now
	if stored.GeneratedAt.IsZero() {
		stored.GeneratedAt = now
	}
	if existing, ok := d.syntheses[m.StoryID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.NewString()
		stored.CreatedAt = now
	}
	d.syntheses[m.StoryID] = &stored

	cp := stored
	return &cp, nil
}

// ListRevisions returns the narrative history oldest first.
func (d *Driver) ListRevisions(_ context.Context, storyID string) ([]*story.Revision, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*story.Revision, 0, len(d.revisions[storyID]))
	for _, r := range d.revisions[storyID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func copyContribution(c *story.Contribution) *story.Contribution {
	cp := *c
	if c.MemoryWorthy != nil {
		v := *c.MemoryWorthy
		cp.MemoryWorthy = &v
	}
	cp.Analysis = copyAnalysis(c.Analysis)
	return &cp
}

func copyAnalysis(a *story.Analysis) *story.Analysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.KeyDetails = slices.Clone(a.KeyDetails)
	return &cp
}

func copyTheme(t *story.Theme) *story.Theme {
	cp := *t
	cp.Metadata.SecondaryImages = slices.Clone(t.Metadata.SecondaryImages)
	cp.Metadata.SecondaryEntityIDs = slices.Clone(t.Metadata.SecondaryEntityIDs)
	return &cp
}
