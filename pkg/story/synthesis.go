package story

import "time"

// SynthesizedMemory is the current narrative for a story.
type SynthesizedMemory struct {
	ID          string            `json:"id"`
	StoryID     string            `json:"story_id"`
	Content     string            `json:"content"`
	Metadata    SynthesisMetadata `json:"metadata"`
	Revision    int               `json:"revision"`
	GeneratedAt time.Time         `json:"generated_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SynthesisMetadata carries everything the model returned beside the
// narrative, plus generation bookkeeping.
type SynthesisMetadata struct {
	Title                   string            `json:"title"`
	Summary                 string            `json:"summary"`
	Themes                  []string          `json:"themes"`
	KeyMoments              []string          `json:"key_moments"`
	Narrative               NarrativeMetadata `json:"metadata"`
	IncludedContributionIDs []string          `json:"included_comment_ids"`
	Generation              GenerationDetails `json:"generation_details"`
}

// NarrativeMetadata is the model's own summary statistics.
type NarrativeMetadata struct {
	TotalMemories   int    `json:"total_memories"`
	TimeSpanDays    int    `json:"time_span_days"`
	PrimaryLocation string `json:"primary_location,omitempty"`
}

// GenerationDetails records which model produced the narrative and from what.
type GenerationDetails struct {
	ModelUsed     string         `json:"model_used"`
	GeneratedAt   time.Time      `json:"generated_at"`
	TotalMemories int            `json:"total_memories"`
	MemoryTypes   []string       `json:"memory_types"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Revision is an immutable historical version of a story's narrative.
type Revision struct {
	StoryID   string            `json:"story_id"`
	Revision  int               `json:"revision"`
	Content   string            `json:"content"`
	Metadata  SynthesisMetadata `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
