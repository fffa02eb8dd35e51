// Package inmemory is a brute-force vector driver for tests and the
// in-memory storage mode.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/papercomputeco/storyline/pkg/vector"
)

// Driver keeps documents in a map and scores every document of a story on
// each query.
type Driver struct {
	mu   sync.RWMutex
	docs map[string]vector.Document
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates an empty driver.
func NewDriver() *Driver {
	return &Driver{docs: make(map[string]vector.Document)}
}

// Add stores copies of docs.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		doc.Embedding = slices.Clone(doc.Embedding)
		d.docs[doc.ID] = doc
	}
	return nil
}

// Query ranks the story's documents by cosine similarity.
func (d *Driver) Query(_ context.Context, storyID string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var results []vector.QueryResult
	for _, doc := range d.docs {
		if doc.StoryID != storyID {
			continue
		}
		if len(doc.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: document %s has %d, query has %d",
				vector.ErrDimensions, doc.ID, len(doc.Embedding), len(embedding))
		}
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    similarity(doc.Embedding, embedding),
		})
	}

	slices.SortFunc(results, func(a, b vector.QueryResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes documents by ID.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// similarity maps cosine similarity from [-1, 1] onto [0, 1].
func similarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32((dot/(math.Sqrt(na)*math.Sqrt(nb)) + 1) / 2)
}
