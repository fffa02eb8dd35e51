package story

import "time"

// DefaultImageURL is the background used when image search is unavailable
// or returns nothing.
const DefaultImageURL = "https://images.unsplash.com/photo-1506905925346-21bda4d32df4?w=1200&h=800&fit=crop"

// Theme is the single visual theme of a story.
type Theme struct {
	ID                 string        `json:"id"`
	StoryID            string        `json:"story_id"`
	SourceEntityID     string        `json:"source_entity_id"`
	SourceEntity       *Entity       `json:"source_entity,omitempty"`
	BackgroundImageURL *string       `json:"background_image_url,omitempty"`
	IconPack           *string       `json:"icon_pack,omitempty"`
	Metadata           ThemeMetadata `json:"metadata"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ThemeMetadata records how the theme was derived.
type ThemeMetadata struct {
	AnalyzedAt         time.Time `json:"analyzed_at"`
	SecondaryImages    []string  `json:"secondary_images"`
	SecondaryEntityIDs []string  `json:"secondary_entity_ids,omitempty"`
	ThemeScore         float64   `json:"theme_score"`
}

// HasBackgroundImage reports whether the theme carries a non-empty image URL.
func (t *Theme) HasBackgroundImage() bool {
	return t != nil && t.BackgroundImageURL != nil && *t.BackgroundImageURL != ""
}

// ImageURL returns the background image URL or "".
func (t *Theme) ImageURL() string {
	if !t.HasBackgroundImage() {
		return ""
	}
	return *t.BackgroundImageURL
}

// ThemeChanged reports whether the background image differs between two
// theme states. A transition to or from "no image" counts as a change.
func ThemeChanged(before, after *Theme) bool {
	var b, a *string
	if before != nil {
		b = before.BackgroundImageURL
	}
	if after != nil {
		a = after.BackgroundImageURL
	}
	if b == nil || a == nil {
		return (b == nil) != (a == nil)
	}
	return *b != *a
}
