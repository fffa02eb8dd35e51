package entdriver

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

var contributionColumns = []string{
	"id", "owner_kind", "story_id", "author_id", "author_name", "subject", "body",
	"location", "occurred_at", "parent_id", "is_memory_worthy", "memory_analysis", "created_at",
}

// CreateContribution inserts a contribution. The owner must be an existing story.
func (ed *EntDriver) CreateContribution(ctx context.Context, c *story.Contribution) error {
	if c.Owner.Kind != story.OwnerStory {
		return fmt.Errorf("%w: %q", story.ErrUnsupportedOwner, c.Owner.Kind)
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ed.clock()
	}

	var worthy, analysis any
	if c.MemoryWorthy != nil {
		worthy = *c.MemoryWorthy
	}
	if c.Analysis != nil {
		raw, err := marshalJSON(c.Analysis)
		if err != nil {
			return err
		}
		analysis = raw
	}

	ins := ed.builder().Insert(tableContributions).
		Columns(contributionColumns...).
		Values(
			c.ID, string(c.Owner.Kind), c.Owner.ID, nullString(c.AuthorID), c.AuthorName,
			nullString(c.Subject), c.Body, nullString(c.Location), nullTime(c.OccurredAt),
			nullStringPtr(c.ParentID), worthy, analysis, c.CreatedAt.UTC(),
		)
	if _, err := exec(ctx, ed.DB, ins); err != nil {
		return fmt.Errorf("could not create contribution: %w", err)
	}
	return nil
}

// GetContribution retrieves a contribution by id.
func (ed *EntDriver) GetContribution(ctx context.Context, id string) (*story.Contribution, error) {
	b := ed.builder()
	sel := b.Select(contributionColumns...).From(b.Table(tableContributions)).Where(entsql.EQ("id", id))

	var found *story.Contribution
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		c, err := scanContribution(rows)
		found = c
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	if found == nil {
		return nil, storage.NotFoundError{Kind: "contribution", ID: id}
	}
	return found, nil
}

// ListContributions returns a story's contributions in chronological order.
func (ed *EntDriver) ListContributions(ctx context.Context, storyID string, filter storage.ContributionFilter) ([]*story.Contribution, error) {
	b := ed.builder()
	sel := b.Select(contributionColumns...).From(b.Table(tableContributions))

	switch filter.Worthiness {
	case story.Worthy:
		sel.Where(entsql.And(entsql.EQ("story_id", storyID), entsql.EQ("is_memory_worthy", true)))
	case story.NotWorthy:
		sel.Where(entsql.And(entsql.EQ("story_id", storyID), entsql.EQ("is_memory_worthy", false)))
	case story.Unanalyzed:
		sel.Where(entsql.And(entsql.EQ("story_id", storyID), entsql.IsNull("is_memory_worthy")))
	default:
		sel.Where(entsql.EQ("story_id", storyID))
	}

	var out []*story.Contribution
	err := query(ctx, ed.DB, sel, func(rows *entsql.Rows) error {
		c, err := scanContribution(rows)
		if err == nil {
			out = append(out, c)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}

	// NULL ordering differs between dialects, so the order is applied here.
	slices.SortFunc(out, story.Chronological)
	return out, nil
}

// RecordAnalysis writes the classification only while is_memory_worthy is NULL.
func (ed *EntDriver) RecordAnalysis(ctx context.Context, id string, worthy bool, analysis *story.Analysis) (bool, error) {
	var raw any
	if analysis != nil {
		s, err := marshalJSON(analysis)
		if err != nil {
			return false, err
		}
		raw = s
	}

	upd := ed.builder().Update(tableContributions).
		Set("is_memory_worthy", worthy).
		Set("memory_analysis", raw).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("is_memory_worthy")))
	n, err := exec(ctx, ed.DB, upd)
	if err != nil {
		return false, fmt.Errorf("failed to record analysis: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// Distinguish "already analyzed" from "missing".
	if _, err := ed.GetContribution(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ResetAnalysis clears the classification so the contribution can be re-run.
func (ed *EntDriver) ResetAnalysis(ctx context.Context, id string) error {
	upd := ed.builder().Update(tableContributions).
		SetNull("is_memory_worthy").
		SetNull("memory_analysis").
		Where(entsql.EQ("id", id))
	n, err := exec(ctx, ed.DB, upd)
	if err != nil {
		return fmt.Errorf("failed to reset analysis: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "contribution", ID: id}
	}
	return nil
}

func scanContribution(rows *entsql.Rows) (*story.Contribution, error) {
	var (
		c                      story.Contribution
		ownerKind              string
		authorID, subject, loc sql.NullString
		parentID               sql.NullString
		occurredAt             sql.NullTime
		worthy                 sql.NullBool
		analysis               []byte
	)
	err := rows.Scan(
		&c.ID, &ownerKind, &c.Owner.ID, &authorID, &c.AuthorName, &subject, &c.Body,
		&loc, &occurredAt, &parentID, &worthy, &analysis, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contribution: %w", err)
	}

	c.Owner.Kind = story.OwnerKind(ownerKind)
	c.AuthorID = authorID.String
	c.Subject = subject.String
	c.Location = loc.String
	c.OccurredAt = timePtr(occurredAt)
	c.ParentID = stringPtr(parentID)
	c.CreatedAt = c.CreatedAt.UTC()
	if worthy.Valid {
		v := worthy.Bool
		c.MemoryWorthy = &v
	}
	if len(analysis) > 0 {
		c.Analysis = &story.Analysis{}
		if err := unmarshalJSON(analysis, c.Analysis); err != nil {
			return nil, err
		}
	}
	return &c, nil
}
