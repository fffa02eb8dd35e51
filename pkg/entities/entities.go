// Package entities derives read-only views over a story's entities.
package entities

import (
	"cmp"
	"slices"
	"time"

	"github.com/papercomputeco/storyline/pkg/story"
)

// Grouped holds a story's entities split by kind.
type Grouped struct {
	People []*story.Entity `json:"people"`
	Places []*story.Entity `json:"places"`
	Things []*story.Entity `json:"things"`
}

// Len is the total number of grouped entities.
func (g Grouped) Len() int {
	return len(g.People) + len(g.Places) + len(g.Things)
}

// ByKind returns the group for k.
func (g Grouped) ByKind(k story.EntityKind) []*story.Entity {
	switch k {
	case story.Person:
		return g.People
	case story.Place:
		return g.Places
	case story.Thing:
		return g.Things
	}
	return nil
}

// GroupByKind splits entities by kind. Each group is ordered by mention count
// descending, then by creation.
func GroupByKind(list []*story.Entity) Grouped {
	var g Grouped
	for _, e := range list {
		switch e.Kind {
		case story.Person:
			g.People = append(g.People, e)
		case story.Place:
			g.Places = append(g.Places, e)
		case story.Thing:
			g.Things = append(g.Things, e)
		}
	}
	for _, group := range [][]*story.Entity{g.People, g.Places, g.Things} {
		slices.SortStableFunc(group, byMentions)
	}
	return g
}

func byMentions(a, b *story.Entity) int {
	if c := cmp.Compare(b.MentionCount(), a.MentionCount()); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// Stats is the presentation record for one entity.
type Stats struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Kind              story.EntityKind `json:"entity_type"`
	MentionCount      int              `json:"mention_count"`
	AverageConfidence *float64         `json:"average_confidence"`
	FirstMentionedAt  *time.Time       `json:"first_mentioned_at"`
	LastMentionedAt   *time.Time       `json:"last_mentioned_at"`
}

// Summarize builds the Stats for e. Undefined aggregates are nil.
func Summarize(e *story.Entity) Stats {
	s := Stats{
		ID:           e.ID,
		Name:         e.Name,
		Kind:         e.Kind,
		MentionCount: e.MentionCount(),
	}
	if avg, ok := e.AverageConfidence(); ok {
		s.AverageConfidence = &avg
	}
	if first, ok := e.FirstMentionedAt(); ok {
		s.FirstMentionedAt = &first
	}
	if last, ok := e.LastMentionedAt(); ok {
		s.LastMentionedAt = &last
	}
	return s
}

// SummarizeAll applies Summarize to every entity, keeping order.
func SummarizeAll(list []*story.Entity) []Stats {
	out := make([]Stats, 0, len(list))
	for _, e := range list {
		out = append(out, Summarize(e))
	}
	return out
}
