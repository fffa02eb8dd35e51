// Package theme picks a story's representative entity, resolves imagery for
// it, and keeps the story's single theme row current.
package theme

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/story"
)

// DefaultSecondaryLimit is the number of secondary entities selected.
const DefaultSecondaryLimit = 3

// genericNames are penalized wherever they appear in an entity name.
var genericNames = []string{"thing", "stuff", "item", "place", "location", "person", "someone", "anyone"}

// Scored is an entity with its theme score.
type Scored struct {
	Entity *story.Entity `json:"entity"`
	Score  float64       `json:"score"`
}

// Selection is the outcome of ranking a story's entities.
type Selection struct {
	Primary   *Scored  `json:"primary,omitempty"`
	Secondary []Scored `json:"secondary,omitempty"`
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return s.Primary == nil
}

// SecondaryEntities returns the secondary entities in rank order.
func (s Selection) SecondaryEntities() []*story.Entity {
	out := make([]*story.Entity, 0, len(s.Secondary))
	for _, sc := range s.Secondary {
		out = append(out, sc.Entity)
	}
	return out
}

// IsGeneric reports whether name contains a stoplisted generic word.
func IsGeneric(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range genericNames {
		if strings.Contains(lower, g) {
			return true
		}
	}
	return false
}

// Score rates an entity as a theme candidate at time now.
func Score(e *story.Entity, now time.Time) float64 {
	score := 10 * float64(e.MentionCount())

	switch e.Kind {
	case story.Place, story.Thing:
		score += 50
	case story.Person:
		score += 10
	}

	if avg, ok := e.AverageConfidence(); ok {
		score += 20 * avg
	}

	if last, ok := e.LastMentionedAt(); ok {
		days := now.Sub(last).Hours() / 24
		score += math.Max(30-days, 0)
	}

	if IsGeneric(e.Name) {
		score -= 20
	}
	return score
}

// Rank scores entities and sorts them best first. Equal scores fall back to
// entity creation time, then normalized name, then id.
func Rank(list []*story.Entity, now time.Time) []Scored {
	ranked := make([]Scored, 0, len(list))
	for _, e := range list {
		ranked = append(ranked, Scored{Entity: e, Score: Score(e, now)})
	}
	slices.SortFunc(ranked, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.Entity.CreatedAt.Compare(b.Entity.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(story.NormalizeName(a.Entity.Name), story.NormalizeName(b.Entity.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Entity.ID, b.Entity.ID)
	})
	return ranked
}

// SelectPrimary picks the theme entity from a ranked list: the best place or
// thing scoring above 30, else the best entity above 20, else the best overall.
func SelectPrimary(ranked []Scored) *Scored {
	if len(ranked) == 0 {
		return nil
	}
	for i := range ranked {
		if k := ranked[i].Entity.Kind; (k == story.Place || k == story.Thing) && ranked[i].Score > 30 {
			return &ranked[i]
		}
	}
	for i := range ranked {
		if ranked[i].Score > 20 {
			return &ranked[i]
		}
	}
	return &ranked[0]
}

// SelectSecondary returns up to limit ranked entities other than primary.
func SelectSecondary(ranked []Scored, primary *Scored, limit int) []Scored {
	if limit <= 0 {
		return nil
	}
	out := make([]Scored, 0, limit)
	for _, sc := range ranked {
		if primary != nil && sc.Entity.ID == primary.Entity.ID {
			continue
		}
		out = append(out, sc)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Ranker selects primary and secondary theme entities for a story.
type Ranker struct {
	now            func() time.Time
	secondaryLimit int
}

// NewRanker creates a Ranker using now as its clock.
func NewRanker(now func() time.Time, secondaryLimit int) *Ranker {
	if now == nil {
		now = time.Now
	}
	if secondaryLimit <= 0 {
		secondaryLimit = DefaultSecondaryLimit
	}
	return &Ranker{now: now, secondaryLimit: secondaryLimit}
}

// Identify ranks the story's entities. The selection is empty when the story
// has theming disabled or no entities.
func (r *Ranker) Identify(s *story.Story, list []*story.Entity) Selection {
	if !s.ThemingEnabled || len(list) == 0 {
		return Selection{}
	}
	ranked := Rank(list, r.now())
	primary := SelectPrimary(ranked)
	return Selection{
		Primary:   primary,
		Secondary: SelectSecondary(ranked, primary, r.secondaryLimit),
	}
}
