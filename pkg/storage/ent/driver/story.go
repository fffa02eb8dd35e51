package entdriver

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var storyColumns = []string{"id", "title", "description", "start_date", "end_date", "theming_enabled", "created_at"}

// CreateStory inserts a story.
func (ed *EntDriver) CreateStory(ctx context.Context, s *story.Story) error {
	if s.ID == "" {
		s.ID = newID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = ed.clock()
	}

	ins := ed.builder().Insert(tableStories).
		Columns(storyColumns...).
		Values(s.ID, s.Title, nullString(s.Description), nullTime(s.StartDate), nullTime(s.EndDate), s.ThemingEnabled, s.CreatedAt.UTC())
	if _, err := exec(ctx, ed.DB, ins); err != nil {
		return fmt.Errorf("could not create story: %w", err)
	}
	return nil
}

// GetStory retrieves a story by id.
func (ed *EntDriver) GetStory(ctx context.Context, id string) (*story.Story, error) {
	b := ed.builder()
	sel := b.Select(storyColumns...).From(b.Table(tableStories)).Where(entsql.EQ("id", id))

	var found *story.Story
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		s, err := scanStory(rows)
		found = s
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	if found == nil {
		return nil, storage.NotFoundError{Kind: "story", ID: id}
	}
	return found, nil
}

// ListStories returns all stories ordered by creation.
func (ed *EntDriver) ListStories(ctx context.Context) ([]*story.Story, error) {
	b := ed.builder()
	sel := b.Select(storyColumns...).From(b.Table(tableStories)).OrderBy("created_at", "id")

	var out []*story.Story
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		s, err := scanStory(rows)
		if err == nil {
			out = append(out, s)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return out, nil
}

// DeleteStory removes a story. Owned rows go with it via ON DELETE CASCADE.
func (ed *EntDriver) DeleteStory(ctx context.Context, id string) error {
	n, err := exec(ctx, ed.DB, ed.builder().Delete(tableStories).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "story", ID: id}
	}
	return nil
}

func scanStory(rows *entsql.Rows) (*story.Story, error) {
	var (
		s           story.Story
		description sql.NullString
		start, end  sql.NullTime
	)
	if err := rows.Scan(&s.ID, &s.Title, &description, &start, &end, &s.ThemingEnabled, &s.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan story: %w", err)
	}
	s.Description = description.String
	s.StartDate = timePtr(start)
	s.EndDate = timePtr(end)
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}
