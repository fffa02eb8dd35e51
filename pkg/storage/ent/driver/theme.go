package entdriver

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var themeColumns = []string{
	"id", "story_id", "source_entity_id", "background_image_url", "icon_pack",
	"metadata", "created_at", "updated_at",
}

// GetTheme retrieves a story's theme with its source entity.
func (ed *EntDriver) GetTheme(ctx context.Context, storyID string) (*story.Theme, error) {
	b := ed.builder()
	sel := b.Select(themeColumns...).From(b.Table(tableStoryThemes)).Where(entsql.EQ("story_id", storyID))

	var found *story.Theme
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		var (
			t            story.Theme
			sourceID     sql.NullString
			image, icons sql.NullString
			metadata     []byte
		)
		if err := rows.Scan(&t.ID, &t.StoryID, &sourceID, &image, &icons, &metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan theme: %w", err)
		}
		t.SourceEntityID = sourceID.String
		t.BackgroundImageURL = stringPtr(image)
		t.IconPack = stringPtr(icons)
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		if err := unmarshalJSON(metadata, &t.Metadata); err != nil {
			return err
		}
		found = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get theme: %w", err)
	}
	if found == nil {
		return nil, storage.NotFoundError{Kind: "theme", ID: storyID}
	}

	if found.SourceEntityID != "" {
		e, err := ed.GetEntity(ctx, found.SourceEntityID)
		if err != nil && !storage.IsNotFound(err) {
			return nil, err
		}
		found.SourceEntity = e
	}
	return found, nil
}

// UpsertTheme writes the story's single theme row in one statement.
func (ed *EntDriver) UpsertTheme(ctx context.Context, t *story.Theme) (*story.Theme, error) {
	now := ed.clock()
	id := t.ID
	if id == "" {
		id = newID()
	}
	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return nil, err
	}

	ins := ed.builder().Insert(tableStoryThemes).
		Columns(themeColumns...).
		Values(id, t.StoryID, nullString(t.SourceEntityID), nullStringPtr(t.BackgroundImageURL),
			nullStringPtr(t.IconPack), metadata, now, now).
		OnConflict(
			entsql.ConflictColumns("story_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("source_entity_id")
				u.SetExcluded("background_image_url")
				u.SetExcluded("icon_pack")
				u.SetExcluded("metadata")
				u.SetExcluded("updated_at")
			}),
		)
	if _, err := exec(ctx, ed.DB, ins); err != nil {
		return nil, fmt.Errorf("could not upsert theme: %w", err)
	}
	return ed.GetTheme(ctx, t.StoryID)
}
