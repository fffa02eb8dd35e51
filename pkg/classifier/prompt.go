package classifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/story"
)

const dateLayout = "2006-01-02"

// Prompt renders the analysis prompt for a contribution in its owner's context.
func Prompt(owner story.Owner, c *story.Contribution) string {
	start, end := owner.OwnerDateRange()

	var b strings.Builder
	b.WriteString("Analyze this comment from a collaborative story to determine if it contains a substantive memory worth including in the final narrative.\n\n")

	b.WriteString("STORY CONTEXT:\n")
	fmt.Fprintf(&b, "Title: %s\n", owner.OwnerTitle())
	fmt.Fprintf(&b, "Description: %s\n", owner.OwnerDescription())
	fmt.Fprintf(&b, "Start Date: %s\n", formatDate(start))
	fmt.Fprintf(&b, "End Date: %s\n\n", formatDate(end))

	b.WriteString("COMMENT TO ANALYZE:\n")
	fmt.Fprintf(&b, "Author: %s\n", c.AuthorName)
	fmt.Fprintf(&b, "Posted: %s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "When it happened: %s\n", orDefault(formatTime(c.OccurredAt), "Not specified"))
	fmt.Fprintf(&b, "Location: %s\n", orDefault(c.Location, "Not specified"))
	fmt.Fprintf(&b, "Subject: %s\n", orDefault(c.Subject, "No subject"))
	fmt.Fprintf(&b, "Content: %s\n\n", c.Body)

	b.WriteString(`ANALYSIS CRITERIA:
- A memory is "worthy" if it contains specific details, events, conversations, observations, or feelings that contribute to the story
- Consider the temporal context (when it happened vs when posted)
- Consider the location context if provided
- Look for concrete details, emotions, interactions, or memorable moments
- Exclude general comments, questions, or non-substantive responses
- Consider the relationship to the story's theme and timeline

Please analyze this comment and provide structured output with your reasoning.
`)
	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
