// Package embeddingstest provides a deterministic embeddings.Embedder for
// tests: each dimension counts one vocabulary word.
package embeddingstest

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/storyline/pkg/embeddings"
)

// Embedder maps text onto word counts over a fixed vocabulary, plus one
// constant dimension so no vector is zero.
type Embedder struct {
	vocab []string

	mu    sync.Mutex
	err   error
	calls []string
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates an embedder over vocab. Dimensions is len(vocab)+1.
func New(vocab ...string) *Embedder {
	lower := make([]string, len(vocab))
	for i, w := range vocab {
		lower[i] = strings.ToLower(w)
	}
	return &Embedder{vocab: lower}
}

// Fails makes every following Embed call return err.
func (e *Embedder) Fails(err error) *Embedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
	return e
}

// Dimensions is the length of every returned vector.
func (e *Embedder) Dimensions() int {
	return len(e.vocab) + 1
}

// Calls returns the texts embedded so far.
func (e *Embedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Embed counts vocabulary words in text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]float32, e.Dimensions())
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		for i, v := range e.vocab {
			if word == v {
				out[i]++
			}
		}
	}
	out[len(e.vocab)] = 0.1
	return out, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
}
