package entdriver

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var (
	synthesisColumns = []string{"id", "story_id", "content", "metadata", "revision", "generated_at", "created_at", "updated_at"}
	revisionColumns  = []string{"story_id", "revision", "content", "metadata", "created_at"}
)

// GetSynthesis retrieves the current narrative for a story.
func (ed *EntDriver) GetSynthesis(ctx context.Context, storyID string) (*story.SynthesizedMemory, error) {
	b := ed.builder()
	sel := b.Select(synthesisColumns...).From(b.Table(tableSynthesizedMemory)).Where(entsql.EQ("story_id", storyID))

	var found *story.SynthesizedMemory
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		var (
			m        story.SynthesizedMemory
			metadata []byte
		)
		if err := rows.Scan(&m.ID, &m.StoryID, &m.Content, &metadata, &m.Revision, &m.GeneratedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan synthesized memory: %w", err)
		}
		if err := unmarshalJSON(metadata, &m.Metadata); err != nil {
			return err
		}
		m.GeneratedAt = m.GeneratedAt.UTC()
		m.CreatedAt = m.CreatedAt.UTC()
		m.UpdatedAt = m.UpdatedAt.UTC()
		found = &m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get synthesized memory: %w", err)
	}
	if found == nil {
		return nil, storage.NotFoundError{Kind: "synthesized memory", ID: storyID}
	}
	return found, nil
}

// SaveSynthesis appends a revision and replaces the current narrative atomically.
func (ed *EntDriver) SaveSynthesis(ctx context.Context, m *story.SynthesizedMemory) (*story.SynthesizedMemory, error) {
	metadata, err := marshalJSON(m.Metadata)
	if err != nil {
		return nil, err
	}
	now := ed.clock()
	generatedAt := m.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = now
	}

	ed.revisionMu.Lock()
	defer ed.revisionMu.Unlock()

	err = ed.withTx(ctx, func(tx dialect.ExecQuerier) error {
		if err := ed.lockStory(ctx, tx, m.StoryID); err != nil {
			return err
		}
		next, err := ed.nextRevision(ctx, tx, m.StoryID)
		if err != nil {
			return err
		}

		rev := ed.builder().Insert(tableSynthesisRevisions).
			Columns(append([]string{"id"}, revisionColumns...)...).
			Values(newID(), m.StoryID, next, m.Content, metadata, now)
		if _, err := exec(ctx, tx, rev); err != nil {
			return fmt.Errorf("could not append synthesis revision: %w", err)
		}

		cur := ed.builder().Insert(tableSynthesizedMemory).
			Columns(synthesisColumns...).
			Values(newID(), m.StoryID, m.Content, metadata, next, generatedAt.UTC(), now, now).
			OnConflict(
				entsql.ConflictColumns("story_id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.SetExcluded("content")
					u.SetExcluded("metadata")
					u.SetExcluded("revision")
					u.SetExcluded("generated_at")
					u.SetExcluded("updated_at")
				}),
			)
		if _, err := exec(ctx, tx, cur); err != nil {
			return fmt.Errorf("could not upsert synthesized memory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ed.GetSynthesis(ctx, m.StoryID)
}

// lockStory takes a row lock on the story so writers in other processes
// number revisions one at a time. SQLite serializes writers on its own.
func (ed *EntDriver) lockStory(ctx context.Context, tx dialect.ExecQuerier, storyID string) error {
	if ed.DB.Dialect() != dialect.Postgres {
		return nil
	}
	b := ed.builder()
	sel := b.Select("id").From(b.Table(tableStories)).
		Where(entsql.EQ("id", storyID)).
		ForUpdate()
	if err := query(ctx, tx, sel, func(*entsql.Rows) error { return nil }); err != nil {
		return fmt.Errorf("failed to lock story: %w", err)
	}
	return nil
}

func (ed *EntDriver) nextRevision(ctx context.Context, tx dialect.ExecQuerier, storyID string) (int, error) {
	b := ed.builder()
	sel := b.SelectExpr(entsql.Expr("COALESCE(MAX(revision), 0)")).
		From(b.Table(tableSynthesisRevisions)).
		Where(entsql.EQ("story_id", storyID))

	var latest int64
	err := query(ctx, tx, sel, func(rows *entsql.Rows) error {
		return rows.Scan(&latest)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read latest revision: %w", err)
	}
	return int(latest) + 1, nil
}

// ListRevisions returns the narrative history oldest first.
func (ed *EntDriver) ListRevisions(ctx context.Context, storyID string) ([]*story.Revision, error) {
	b := ed.builder()
	sel := b.Select(revisionColumns...).From(b.Table(tableSynthesisRevisions)).
		Where(entsql.EQ("story_id", storyID)).
		OrderBy("revision")

	var out []*story.Revision
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		var (
			r         story.Revision
			metadata  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&r.StoryID, &r.Revision, &r.Content, &metadata, &createdAt); err != nil {
			return fmt.Errorf("failed to scan revision: %w", err)
		}
		if err := unmarshalJSON(metadata, &r.Metadata); err != nil {
			return err
		}
		r.CreatedAt = createdAt.UTC()
		out = append(out, &r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	return out, nil
}
