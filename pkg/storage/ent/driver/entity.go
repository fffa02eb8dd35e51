package entdriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var (
	entityColumns  = []string{"id", "story_id", "name", "entity_type", "created_at"}
	mentionColumns = []string{"entity_id", "contribution_id", "confidence", "mentioned_at"}
)

// RecordMentions finds or creates an entity per candidate and links it to
// the contribution. The whole batch commits or none of it does.
func (ed *EntDriver) RecordMentions(ctx context.Context, c *story.Contribution, candidates []story.Candidate) (storage.MentionResult, error) {
	var result storage.MentionResult
	storyID := c.StoryID()
	if storyID == "" {
		return result, fmt.Errorf("%w: %q", story.ErrUnsupportedOwner, c.Owner.Kind)
	}

	err := ed.withTx(ctx, func(tx dialect.ExecQuerier) error {
		now := ed.clock()
		for _, cand := range candidates {
			name := strings.TrimSpace(cand.Name)
			key := story.NormalizeName(name)
			if key == "" || !cand.Kind.Valid() {
				continue
			}

			entityID, created, err := ed.findOrCreateEntity(ctx, tx, storyID, name, key, cand.Kind, now)
			if err != nil {
				return err
			}
			if created {
				result.NewEntities++
			}

			ins := ed.builder().Insert(tableEntityMentions).
				Columns("id", "entity_id", "contribution_id", "confidence", "mentioned_at").
				Values(newID(), entityID, c.ID, cand.Confidence, c.CreatedAt.UTC()).
				OnConflict(entsql.ConflictColumns("entity_id", "contribution_id"), entsql.DoNothing())
			n, err := exec(ctx, tx, ins)
			if err != nil {
				return fmt.Errorf("could not create mention for %q: %w", name, err)
			}
			result.NewMentions += int(n)
		}
		return nil
	})
	if err != nil {
		return storage.MentionResult{}, err
	}
	return result, nil
}

func (ed *EntDriver) findOrCreateEntity(ctx context.Context, tx dialect.ExecQuerier, storyID, name, key string, kind story.EntityKind, now time.Time) (string, bool, error) {
	ins := ed.builder().Insert(tableEntities).
		Columns("id", "story_id", "name", "name_key", "entity_type", "created_at").
		Values(newID(), storyID, name, key, string(kind), now.UTC()).
		OnConflict(entsql.ConflictColumns("story_id", "name_key", "entity_type"), entsql.DoNothing())
	n, err := exec(ctx, tx, ins)
	if err != nil {
		return "", false, fmt.Errorf("could not create entity %q: %w", name, err)
	}

	b := ed.builder()
	sel := b.Select("id").From(b.Table(tableEntities)).Where(entsql.And(
		entsql.EQ("story_id", storyID),
		entsql.EQ("name_key", key),
		entsql.EQ("entity_type", string(kind)),
	))
	var id string
	err = query(ctx, tx, sel, func(rows *entsql.Rows) error {
		return rows.Scan(&id)
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to look up entity %q: %w", name, err)
	}
	if id == "" {
		return "", false, storage.NotFoundError{Kind: "entity", ID: key}
	}
	return id, n > 0, nil
}

// ListEntities returns a story's entities with mentions, ordered by creation.
func (ed *EntDriver) ListEntities(ctx context.Context, storyID string) ([]*story.Entity, error) {
	b := ed.builder()
	sel := b.Select(entityColumns...).From(b.Table(tableEntities)).
		Where(entsql.EQ("story_id", storyID)).
		OrderBy("created_at", "id")

	entities, err := ed.queryEntities(ctx, sel)
	if err != nil {
		return nil, err
	}
	if err := ed.loadMentions(ctx, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// GetEntity retrieves an entity and its mentions.
func (ed *EntDriver) GetEntity(ctx context.Context, id string) (*story.Entity, error) {
	b := ed.builder()
	sel := b.Select(entityColumns...).From(b.Table(tableEntities)).Where(entsql.EQ("id", id))

	entities, err := ed.queryEntities(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, storage.NotFoundError{Kind: "entity", ID: id}
	}
	if err := ed.loadMentions(ctx, entities); err != nil {
		return nil, err
	}
	return entities[0], nil
}

func (ed *EntDriver) queryEntities(ctx context.Context, sel *entsql.Selector) ([]*story.Entity, error) {
	var out []*story.Entity
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		var (
			e    story.Entity
			kind string
		)
		if err := rows.Scan(&e.ID, &e.StoryID, &e.Name, &kind, &e.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Kind = story.EntityKind(kind)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	return out, nil
}

func (ed *EntDriver) loadMentions(ctx context.Context, entities []*story.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	byID := make(map[string]*story.Entity, len(entities))
	ids := make([]any, 0, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	b := ed.builder()
	sel := b.Select(mentionColumns...).From(b.Table(tableEntityMentions)).
		Where(entsql.In("entity_id", ids...)).
		OrderBy("mentioned_at", "contribution_id")

	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		var m story.Mention
		if err := rows.Scan(&m.EntityID, &m.ContributionID, &m.Confidence, &m.MentionedAt); err != nil {
			return fmt.Errorf("failed to scan mention: %w", err)
		}
		m.MentionedAt = m.MentionedAt.UTC()
		if e, ok := byID[m.EntityID]; ok {
			e.Mentions = append(e.Mentions, m)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load mentions: %w", err)
	}
	return nil
}
