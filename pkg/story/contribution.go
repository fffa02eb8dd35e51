package story

import (
	"strings"
	"time"
)

// Worthiness is the tri-state classification of a contribution.
type Worthiness string

const (
	Unanalyzed Worthiness = "unanalyzed"
	Worthy     Worthiness = "worthy"
	NotWorthy  Worthiness = "not_worthy"
)

// Contribution is a single piece of user-authored text attached to an owner.
type Contribution struct {
	ID         string     `json:"id"`
	Owner      OwnerRef   `json:"owner"`
	AuthorID   string     `json:"author_id,omitempty"`
	AuthorName string     `json:"author_name"`
	Subject    string     `json:"subject,omitempty"`
	Body       string     `json:"body"`
	Location   string     `json:"location,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	ParentID   *string    `json:"parent_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// MemoryWorthy is nil until the classifier has run.
	MemoryWorthy *bool     `json:"is_memory_worthy"`
	Analysis     *Analysis `json:"memory_analysis,omitempty"`
}

// Analysis is the classifier's record for a contribution. A non-empty Error
// marks a fail-closed classification.
type Analysis struct {
	Reasoning  string    `json:"reasoning,omitempty"`
	MemoryType string    `json:"memory_type,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	KeyDetails []string  `json:"key_details,omitempty"`
	Error      string    `json:"error,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// StoryID returns the owning story id, or "" when the owner is not a story.
func (c *Contribution) StoryID() string {
	if c.Owner.Kind != OwnerStory {
		return ""
	}
	return c.Owner.ID
}

// Worthiness reports the classification state.
func (c *Contribution) Worthiness() Worthiness {
	switch {
	case c.MemoryWorthy == nil:
		return Unanalyzed
	case *c.MemoryWorthy:
		return Worthy
	default:
		return NotWorthy
	}
}

// IsWorthy reports whether the contribution was classified memory-worthy.
func (c *Contribution) IsWorthy() bool {
	return c.Worthiness() == Worthy
}

// MemoryType returns the classifier's memory type, or "" when unknown.
func (c *Contribution) MemoryType() string {
	if c.Analysis == nil {
		return ""
	}
	return c.Analysis.MemoryType
}

// KeyDetails returns the classifier's key details, if any.
func (c *Contribution) KeyDetails() []string {
	if c.Analysis == nil {
		return nil
	}
	return c.Analysis.KeyDetails
}

// When returns the time the memory happened, falling back to when it was posted.
func (c *Contribution) When() time.Time {
	if c.OccurredAt != nil {
		return *c.OccurredAt
	}
	return c.CreatedAt
}

// NewContribution validates and normalizes a contribution for a story.
func NewContribution(storyID, authorName, body string) (*Contribution, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	return &Contribution{
		Owner:      OwnerRef{Kind: OwnerStory, ID: storyID},
		AuthorName: strings.TrimSpace(authorName),
		Body:       body,
	}, nil
}

// Chronological orders contributions by occurred_at then created_at, with
// unset occurred_at sorting first and ids breaking remaining ties.
func Chronological(a, b *Contribution) int {
	switch {
	case a.OccurredAt == nil && b.OccurredAt != nil:
		return -1
	case a.OccurredAt != nil && b.OccurredAt == nil:
		return 1
	case a.OccurredAt != nil && b.OccurredAt != nil:
		if c := a.OccurredAt.Compare(*b.OccurredAt); c != 0 {
			return c
		}
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
