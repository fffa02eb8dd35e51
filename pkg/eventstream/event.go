package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/storyline/pkg/entities"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/theme"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeThemeChanged is emitted when a story's background image changes.
	EventTypeThemeChanged = "storyline.theme.changed"

	// EventTypeSynthesisUpdated is emitted after every successful synthesis.
	EventTypeSynthesisUpdated = "storyline.synthesis.updated"
)

// StoryEvent is a transport-neutral notification carrying a story snapshot.
type StoryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	StoryID       string    `json:"story_id"`
	Payload       Snapshot  `json:"payload"`
}

// Snapshot is the rendered state observers need to redraw a story.
type Snapshot struct {
	Story         *story.Story             `json:"story"`
	Theme         *theme.ThemeData         `json:"theme"`
	Entities      entities.Grouped         `json:"entities"`
	Synthesis     *story.SynthesizedMemory `json:"synthesis"`
	Contributions []*story.Contribution    `json:"contributions"`
}

// NewStoryEvent builds an event of eventType for a snapshot.
func NewStoryEvent(eventType string, snapshot Snapshot, now time.Time) *StoryEvent {
	var storyID string
	if snapshot.Story != nil {
		storyID = snapshot.Story.ID
	}
	return &StoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		StoryID:       storyID,
		Payload:       snapshot,
	}
}
