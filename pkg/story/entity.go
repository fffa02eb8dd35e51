package story

import (
	"math"
	"time"
)

// EntityKind is the closed set of entity types.
type EntityKind string

const (
	Person EntityKind = "person"
	Place  EntityKind = "place"
	Thing  EntityKind = "thing"
)

// Kinds lists every EntityKind in presentation order.
var Kinds = []EntityKind{Person, Place, Thing}

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	switch k {
	case Person, Place, Thing:
		return true
	}
	return false
}

// Entity is a named person, place, or thing, unique per story by
// (NormalizeName(Name), Kind).
type Entity struct {
	ID        string     `json:"id"`
	StoryID   string     `json:"story_id"`
	Name      string     `json:"name"`
	Kind      EntityKind `json:"entity_type"`
	CreatedAt time.Time  `json:"created_at"`
	Mentions  []Mention  `json:"mentions,omitempty"`
}

// Mention links an entity to a contribution it appears in, unique per pair.
type Mention struct {
	EntityID       string    `json:"entity_id"`
	ContributionID string    `json:"contribution_id"`
	Confidence     float64   `json:"confidence"`
	MentionedAt    time.Time `json:"mentioned_at"`
}

// MentionCount is the number of distinct contributions mentioning the entity.
func (e *Entity) MentionCount() int {
	return len(e.Mentions)
}

// AverageConfidence is the mean mention confidence rounded to two decimals.
// It is undefined when the entity has no mentions.
func (e *Entity) AverageConfidence() (float64, bool) {
	if len(e.Mentions) == 0 {
		return 0, false
	}
	var sum float64
	for _, m := range e.Mentions {
		sum += m.Confidence
	}
	return math.Round(sum/float64(len(e.Mentions))*100) / 100, true
}

// FirstMentionedAt is the creation time of the earliest mentioning contribution.
func (e *Entity) FirstMentionedAt() (time.Time, bool) {
	var first time.Time
	for i, m := range e.Mentions {
		if i == 0 || m.MentionedAt.Before(first) {
			first = m.MentionedAt
		}
	}
	return first, len(e.Mentions) > 0
}

// LastMentionedAt is the creation time of the latest mentioning contribution.
func (e *Entity) LastMentionedAt() (time.Time, bool) {
	var last time.Time
	for i, m := range e.Mentions {
		if i == 0 || m.MentionedAt.After(last) {
			last = m.MentionedAt
		}
	}
	return last, len(e.Mentions) > 0
}

// Candidate is an entity proposed by the extractor for a contribution.
type Candidate struct {
	Name       string
	Kind       EntityKind
	Confidence float64
}
