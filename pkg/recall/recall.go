// Package recall indexes memory-worthy contributions as embeddings and
// finds the ones closest to a free-text query within a story.
package recall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/storyline/pkg/embeddings"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/vector"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("query is required")

// Store is the persistence the index reads contributions from.
type Store interface {
	storage.ContributionStore
}

// Match is a contribution and how closely it matched the query.
type Match struct {
	Contribution *story.Contribution `json:"contribution"`
	Score        float32             `json:"score"`
}

// Index keeps the vector store in step with contribution worthiness.
type Index struct {
	store    Store
	embedder embeddings.Embedder
	vectors  vector.Driver
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an Index over an embedder and a vector driver.
func New(store Store, embedder embeddings.Embedder, vectors vector.Driver, opts ...Option) *Index {
	i := &Index{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logger.Component(i.logger, "recall")
	return i
}

// Text is what gets embedded for a contribution.
func Text(c *story.Contribution) string {
	if c.Subject == "" {
		return c.Body
	}
	return c.Subject + "\n\n" + c.Body
}

// Add embeds a worthy contribution and stores it. Contributions that are not
// worthy are removed instead, so reclassification keeps the index honest.
func (i *Index) Add(ctx context.Context, contributionID string) error {
	c, err := i.store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	if c.Worthiness() != story.Worthy {
		return i.Remove(ctx, contributionID)
	}

	embedding, err := i.embedder.Embed(ctx, Text(c))
	if err != nil {
		return fmt.Errorf("embedding contribution %s: %w", c.ID, err)
	}

	if err := i.vectors.Add(ctx, []vector.Document{{
		ID:        c.ID,
		StoryID:   c.StoryID(),
		Embedding: embedding,
	}}); err != nil {
		return fmt.Errorf("storing embedding for contribution %s: %w", c.ID, err)
	}

	i.logger.Debug("indexed contribution", "contribution_id", c.ID, "story_id", c.StoryID())
	return nil
}

// Remove drops a contribution from the index.
func (i *Index) Remove(ctx context.Context, contributionID string) error {
	return i.vectors.Delete(ctx, []string{contributionID})
}

// Search returns up to limit worthy contributions of storyID closest to
// query, best first. Index entries whose contribution is gone or no longer
// worthy are skipped.
func (i *Index) Search(ctx context.Context, storyID, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = vector.DefaultTopK
	}

	embedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := i.vectors.Query(ctx, storyID, embedding, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		c, err := i.store.GetContribution(ctx, r.ID)
		switch {
		case storage.IsNotFound(err):
			i.logger.Warn("dropping stale index entry", "contribution_id", r.ID)
			continue
		case err != nil:
			return nil, err
		}
		if c.Worthiness() != story.Worthy {
			continue
		}
		matches = append(matches, Match{Contribution: c, Score: r.Score})
	}
	return matches, nil
}

// Close releases the embedder and the vector store.
func (i *Index) Close() error {
	return errors.Join(i.embedder.Close(), i.vectors.Close())
}
