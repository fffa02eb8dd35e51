package theme_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/storyline/pkg/imagesearch"
	"github.com/papercomputeco/storyline/pkg/story"
)

var now = time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)

// mentioned builds an entity whose mentions happened daysAgo before now.
func mentioned(id, name string, kind story.EntityKind, created int, daysAgo float64, confidences ...float64) *story.Entity {
	e := &story.Entity{
		ID:        id,
		Name:      name,
		Kind:      kind,
		CreatedAt: now.Add(-48 * time.Hour).Add(time.Duration(created) * time.Minute),
	}
	at := now.Add(-time.Duration(daysAgo * 24 * float64(time.Hour)))
	for i, c := range confidences {
		e.Mentions = append(e.Mentions, story.Mention{
			EntityID:       id,
			ContributionID: id + "-" + string(rune('a'+i)),
			Confidence:     c,
			MentionedAt:    at,
		})
	}
	return e
}

// fakeSearcher answers by the first word of the query.
type fakeSearcher struct {
	mu      sync.Mutex
	urls    map[string]string
	queries []imagesearch.Query
}

func newFakeSearcher(urls map[string]string) *fakeSearcher {
	return &fakeSearcher{urls: urls}
}

func (f *fakeSearcher) Search(_ context.Context, q imagesearch.Query) ([]imagesearch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	name := strings.Fields(q.Text)[0]
	url, ok := f.urls[name]
	switch {
	case !ok:
		return nil, errors.New("search failed")
	case url == "":
		return nil, nil
	}
	return []imagesearch.Result{{ID: name, URLs: imagesearch.URLs{Regular: url}}}, nil
}

func (f *fakeSearcher) set(name, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[name] = url
}

func (f *fakeSearcher) calls() []imagesearch.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]imagesearch.Query(nil), f.queries...)
}
