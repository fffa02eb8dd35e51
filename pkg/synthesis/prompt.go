package synthesis

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/story"
)

// Prompt renders the synthesis prompt for memories in chronological order.
func Prompt(owner story.Owner, memories []*story.Contribution) string {
	start, end := owner.OwnerDateRange()

	var b strings.Builder
	b.WriteString("Synthesize these collaborative memories into a cohesive, engaging narrative from a third-person perspective.\n\n")
	b.WriteString("STORY CONTEXT:\n")
	fmt.Fprintf(&b, "Title: %s\n", owner.OwnerTitle())
	fmt.Fprintf(&b, "Description: %s\n", owner.OwnerDescription())
	fmt.Fprintf(&b, "Time Period: %s to %s\n\n", formatDate(start), formatDate(end))

	b.WriteString("MEMORIES TO SYNTHESIZE:\n")
	for i, m := range memories {
		if i > 0 {
			b.WriteString("\n")
		}
		writeMemory(&b, i+1, m)
	}

	b.WriteString(`
SYNTHESIS REQUIREMENTS:
- Write in third-person perspective (e.g., "They arrived at the restaurant...")
- Create a flowing narrative that connects the memories chronologically
- Maintain the authentic voice and details from the original memories
- Include emotional context and relationships between people
- Highlight the most memorable and significant moments
- Create a compelling title that captures the essence of the story
- Provide a brief summary of key events and themes
- Identify recurring themes and motifs
- List the most important moments or turning points

The narrative should read like a well-crafted story that captures the shared experience while preserving the authenticity of the original memories.
`)
	return b.String()
}

func writeMemory(b *strings.Builder, index int, m *story.Contribution) {
	location := m.Location
	if strings.TrimSpace(location) == "" {
		location = "Not specified"
	}
	memoryType := m.MemoryType()
	if memoryType == "" {
		memoryType = "unknown"
	}

	fmt.Fprintf(b, "MEMORY %d:\n", index)
	fmt.Fprintf(b, "Author: %s\n", m.AuthorName)
	fmt.Fprintf(b, "When: %s\n", m.When().Format(time.RFC3339))
	fmt.Fprintf(b, "Location: %s\n", location)
	fmt.Fprintf(b, "Type: %s\n", memoryType)
	fmt.Fprintf(b, "Content: %s\n", m.Body)
	fmt.Fprintf(b, "Key Details: %s\n", strings.Join(m.KeyDetails(), ", "))
	b.WriteString("---\n")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
