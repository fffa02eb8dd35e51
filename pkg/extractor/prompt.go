package extractor

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/storyline/pkg/story"
)

// Prompt renders the extraction prompt for a contribution.
func Prompt(owner story.Owner, c *story.Contribution) string {
	var b strings.Builder
	b.WriteString("Extract entities from this memory/comment. Focus on identifying people, places, and important things mentioned.\n\n")
	fmt.Fprintf(&b, "COMMENT:\n%s\n\n", c.Body)
	fmt.Fprintf(&b, "STORY CONTEXT:\nTitle: %s\nDescription: %s\n\n", owner.OwnerTitle(), owner.OwnerDescription())
	b.WriteString(`EXTRACTION REQUIREMENTS:
- Extract people mentioned by name (first name, full name, or nickname)
- Extract places mentioned (restaurants, cities, parks, venues, etc.)
- Extract important objects, activities, or events mentioned
- Only include entities that are clearly mentioned in the text
- Provide confidence scores based on how clearly the entity is mentioned
- Filter out generic terms like "we", "they", "here", "there" unless they refer to specific people or places
- For people, try to identify relationships if mentioned
- For places, identify the type of place if clear
- For things, categorize them appropriately

Be conservative with confidence scores - only give high scores to clearly identified entities.
`)
	return b.String()
}
