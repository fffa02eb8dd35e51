// Package entdriver
package entdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/storage/ent/migrate"
)

const (
	tableStories            = "stories"
	tableContributions      = "contributions"
	tableEntities           = "entities"
	tableEntityMentions     = "entity_mentions"
	tableStoryThemes        = "story_themes"
	tableSynthesizedMemory  = "synthesized_memories"
	tableSynthesisRevisions = "synthesis_revisions"
)

var _ storage.Driver = (*EntDriver)(nil)

// EntDriver provides storage operations over ent's SQL dialect builders.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	DB *entsql.Driver

	// now is the clock used for created/updated timestamps.
	now func() time.Time

	// revisionMu serializes revision numbering within this process.
	revisionMu sync.Mutex
}

// New wraps drv and runs the schema migration.
func New(ctx context.Context, drv *entsql.Driver) (*EntDriver, error) {
	if err := migrate.Create(ctx, drv); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &EntDriver{DB: drv, now: utcNow}, nil
}

// SetClock overrides the timestamp source. Intended for tests.
func (ed *EntDriver) SetClock(now func() time.Time) {
	ed.now = now
}

// Close closes the database connection.
func (ed *EntDriver) Close() error {
	return ed.DB.Close()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.DB.Dialect())
}

func (ed *EntDriver) clock() time.Time {
	if ed.now == nil {
		return utcNow()
	}
	return ed.now()
}

// withTx runs fn inside a transaction, rolling back on error. fn must only
// use the provided querier.
func (ed *EntDriver) withTx(ctx context.Context, fn func(dialect.ExecQuerier) error) error {
	tx, err := ed.DB.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rollback failed: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// exec runs a builder statement and returns the number of affected rows.
func exec(ctx context.Context, ex dialect.ExecQuerier, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// query runs a select and calls scan for every row.
func query(ctx context.Context, ex dialect.ExecQuerier, q entsql.Querier, scan func(*entsql.Rows) error) error {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func newID() string {
	return uuid.NewString()
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json column: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
