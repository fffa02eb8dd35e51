package theme

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/storyline/pkg/imagesearch"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/story"
)

const (
	defaultContentFilter = "high"
	defaultConcurrency   = 3
)

// categoryTerms are appended to entity names to steer image search.
var categoryTerms = map[story.EntityKind][]string{
	story.Place:  {"landscape", "cityscape", "architecture", "travel"},
	story.Thing:  {"object", "still-life", "abstract"},
	story.Person: {"portrait", "lifestyle", "people"},
}

// Hints adjust a single image lookup.
type Hints struct {
	Orientation string
	Limit       int
	ExtraTerms  string
}

// Resolver maps entities to background image URLs. It never fails: any
// problem resolves to story.DefaultImageURL.
type Resolver struct {
	searcher    imagesearch.Searcher
	logger      *slog.Logger
	concurrency int

	mu  sync.Mutex
	rng *rand.Rand
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger.Component(l, "imageprovider") }
}

// WithRand sets the source used to sample category terms.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

// WithConcurrency bounds concurrent secondary lookups.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver. A nil searcher means no image search
// credential is configured.
func NewResolver(searcher imagesearch.Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		searcher:    searcher,
		logger:      logger.Nop(),
		concurrency: defaultConcurrency,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether an image searcher is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.searcher != nil
}

// Resolve returns a background image URL for e.
func (r *Resolver) Resolve(ctx context.Context, e *story.Entity, h Hints) string {
	if !r.Enabled() {
		return story.DefaultImageURL
	}
	url, ok := r.search(ctx, e, r.query(e, h), h)
	if !ok {
		return story.DefaultImageURL
	}
	return url
}

// ResolveSecondary resolves portrait images for up to limit entities
// concurrently. Order follows list; failed lookups are dropped.
func (r *Resolver) ResolveSecondary(ctx context.Context, list []*story.Entity, limit int) []string {
	if !r.Enabled() || len(list) == 0 || limit <= 0 {
		return []string{}
	}
	if len(list) > limit {
		list = list[:limit]
	}

	hints := Hints{Orientation: imagesearch.Portrait, Limit: 1}

	// Sample terms up front so the queries don't depend on goroutine order.
	queries := make([]string, len(list))
	for i, e := range list {
		queries[i] = r.query(e, hints)
	}

	urls := make([]string, len(list))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, e := range list {
		g.Go(func() error {
			if url, ok := r.search(ctx, e, queries[i], hints); ok {
				urls[i] = url
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (r *Resolver) query(e *story.Entity, h Hints) string {
	parts := []string{e.Name}
	if terms := categoryTerms[e.Kind]; len(terms) > 0 {
		r.mu.Lock()
		parts = append(parts, terms[r.rng.IntN(len(terms))])
		r.mu.Unlock()
	}
	if extra := strings.TrimSpace(h.ExtraTerms); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " ")
}

func (r *Resolver) search(ctx context.Context, e *story.Entity, query string, h Hints) (string, bool) {
	q := imagesearch.Query{
		Text:          query,
		PerPage:       h.Limit,
		Orientation:   h.Orientation,
		ContentFilter: defaultContentFilter,
	}
	if q.PerPage <= 0 {
		q.PerPage = 1
	}
	if q.Orientation == "" {
		q.Orientation = imagesearch.Landscape
	}

	results, err := r.searcher.Search(ctx, q)
	if err != nil {
		r.logger.Error("image search failed", "entity", e.Name, "query", query, "error", err)
		return "", false
	}
	if len(results) > 0 {
		if url := results[0].BestURL(); url != "" {
			r.logger.Debug("resolved image", "entity", e.Name, "url", url)
			return url, true
		}
	}
	r.logger.Warn("no image found", "entity", e.Name, "query", query)
	return "", false
}
