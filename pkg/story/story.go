// Package story defines the domain records of the contribution pipeline:
// stories, contributions, entities and their mentions, themes, and
// synthesized narratives.
package story

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyBody is returned when a contribution is created without text.
var ErrEmptyBody = errors.New("contribution body is empty")

// ErrUnsupportedOwner is returned when an OwnerRef names an unknown kind.
var ErrUnsupportedOwner = errors.New("unsupported owner kind")

// OwnerKind names the kind of record a contribution is attached to.
type OwnerKind string

const (
	// OwnerStory attaches a contribution to a Story.
	OwnerStory OwnerKind = "story"
)

// OwnerRef is a typed reference to the owner of a contribution.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// Owner is the context a contribution is analysed against.
type Owner interface {
	OwnerRef() OwnerRef
	OwnerTitle() string
	OwnerDescription() string
	OwnerDateRange() (start, end *time.Time)
}

// Story is the container that owns contributions, entities, a theme and a
// synthesized narrative.
type Story struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	ThemingEnabled bool       `json:"theming_enabled"`
	CreatedAt      time.Time  `json:"created_at"`
}

var _ Owner = (*Story)(nil)

// OwnerRef identifies the story as the owner of its contributions.
func (s *Story) OwnerRef() OwnerRef { return OwnerRef{Kind: OwnerStory, ID: s.ID} }

// OwnerTitle is the story title given to the LLM prompts as context.
func (s *Story) OwnerTitle() string { return s.Title }

// OwnerDescription is the optional story description, empty when unset.
func (s *Story) OwnerDescription() string { return s.Description }

// OwnerDateRange returns the story's optional start and end dates.
func (s *Story) OwnerDateRange() (start, end *time.Time) {
	return s.StartDate, s.EndDate
}

// NormalizeName is the uniqueness key for entity names: trimmed and lower-cased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
