// Package vector stores contribution embeddings and answers nearest
// neighbour queries within a story.
package vector

import "context"

// Document is an embedded contribution.
type Document struct {
	// ID is the contribution id.
	ID string

	// StoryID scopes queries; documents never match across stories.
	StoryID string

	Embedding []float32
}

// QueryResult is a match with its similarity score.
type QueryResult struct {
	Document

	// Score is higher for closer documents and lies in [0, 1].
	Score float32
}

// Driver handles storage and retrieval of embeddings.
type Driver interface {
	// Add stores documents, replacing any with the same ID.
	Add(ctx context.Context, docs []Document) error

	// Query returns the topK documents of storyID closest to embedding,
	// best first.
	Query(ctx context.Context, storyID string, embedding []float32, topK int) ([]QueryResult, error)

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	Close() error
}

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 10
