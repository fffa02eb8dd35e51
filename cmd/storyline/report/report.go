// Package report renders pipeline state for the storyline commands.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/entities"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
	"github.com/papercomputeco/storyline/pkg/utils"
)

// PrintStory prints the story header.
func PrintStory(w io.Writer, st *story.Story) {
	fmt.Fprintf(w, "\n  %s  %s\n", cliui.TitleStyle.Render(st.Title), cliui.IDStyle.Render(st.ID))
	if st.Description != "" {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(utils.Truncate(utils.Collapse(st.Description), 72)))
	}
	fmt.Fprintln(w)
}

// PrintWorthiness prints the classification outcome of c.
func PrintWorthiness(w io.Writer, c *story.Contribution) {
	label := string(c.Worthiness())
	if mt := c.MemoryType(); mt != "" {
		label += " (" + mt + ")"
	}
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Worthiness:  "), cliui.AccentStyle.Render(label))
	if c.Analysis != nil && c.Analysis.Error != "" {
		fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Error:       "), cliui.DimStyle.Render(c.Analysis.Error))
	}
	fmt.Fprintln(w)
}

// PrintStats prints processing progress.
func PrintStats(w io.Writer, stats pipeline.Stats) {
	row(w, "Contributions:", strconv.Itoa(stats.TotalContributions))
	row(w, "Analyzed:     ", strconv.Itoa(stats.AnalyzedContributions))
	row(w, "Worthy:       ", strconv.Itoa(stats.WorthyContributions))
	row(w, "Pending:      ", strconv.Itoa(stats.PendingAnalysis))

	synthesized := "never"
	if stats.LastSynthesis != nil {
		synthesized = stats.LastSynthesis.Local().Format("2006-01-02 15:04")
	}
	row(w, "Synthesized:  ", synthesized)
	fmt.Fprintln(w)
}

// PrintTheme prints the theme or a placeholder when none exists.
func PrintTheme(w io.Writer, data *theme.ThemeData) {
	if data == nil {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No theme yet."))
		return
	}

	primary := "none"
	if data.PrimaryEntity != nil {
		primary = fmt.Sprintf("%s (%s)", data.PrimaryEntity.Name, data.PrimaryEntity.Kind)
	}
	row(w, "Primary:      ", primary)

	image := "none"
	if data.BackgroundImageURL != nil && *data.BackgroundImageURL != "" {
		image = *data.BackgroundImageURL
	}
	row(w, "Background:   ", image)
	row(w, "Score:        ", strconv.FormatFloat(data.Metadata.ThemeScore, 'f', 2, 64))
	for _, url := range data.Metadata.SecondaryImages {
		fmt.Fprintf(w, "  %s  %s\n", cliui.DimStyle.Render("  secondary"), cliui.DimStyle.Render(url))
	}
	fmt.Fprintln(w)
}

// PrintEntities prints each kind's entities, most mentioned first.
func PrintEntities(w io.Writer, list []*story.Entity) {
	grouped := entities.GroupByKind(list)
	if grouped.Len() == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No entities yet."))
		return
	}

	for _, kind := range story.Kinds {
		group := grouped.ByKind(kind)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render(string(kind)))
		for _, s := range entities.SummarizeAll(group) {
			confidence := "-"
			if s.AverageConfidence != nil {
				confidence = strconv.FormatFloat(*s.AverageConfidence, 'f', 2, 64)
			}
			fmt.Fprintf(w, "    %s %s %s\n",
				cliui.ValueStyle.Render(s.Name),
				cliui.DimStyle.Render(fmt.Sprintf("×%d", s.MentionCount)),
				cliui.DimStyle.Render(confidence),
			)
		}
	}
	fmt.Fprintln(w)
}

// PrintMatches prints search results, best first.
func PrintMatches(w io.Writer, matches []recall.Match) {
	if len(matches) == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No matching contributions."))
		return
	}
	for _, m := range matches {
		c := m.Contribution
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.AccentStyle.Render(fmt.Sprintf("%.2f", m.Score)),
			cliui.IDStyle.Render(c.ID),
			cliui.DimStyle.Render(c.AuthorName),
		)
		if c.Subject != "" {
			fmt.Fprintf(w, "        %s\n", cliui.KeyStyle.Render(c.Subject))
		}
		fmt.Fprintf(w, "        %s\n", cliui.ValueStyle.Render(utils.Truncate(utils.Collapse(c.Body), 72)))
	}
	fmt.Fprintln(w)
}

// NarrativeMarkdown formats a synthesized narrative as a markdown document.
func NarrativeMarkdown(memory *story.SynthesizedMemory) string {
	var b strings.Builder

	title := memory.Metadata.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if memory.Metadata.Summary != "" {
		fmt.Fprintf(&b, "_%s_\n\n", memory.Metadata.Summary)
	}
	b.WriteString(memory.Content)
	b.WriteString("\n")

	if len(memory.Metadata.KeyMoments) > 0 {
		b.WriteString("\n## Key moments\n\n")
		for _, m := range memory.Metadata.KeyMoments {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	if len(memory.Metadata.Themes) > 0 {
		fmt.Fprintf(&b, "\n**Themes:** %s\n", strings.Join(memory.Metadata.Themes, ", "))
	}
	return b.String()
}

// PrintNarrative prints the synthesized narrative, rendered for the terminal
// unless raw is set.
func PrintNarrative(w io.Writer, view *synthesis.View, raw bool) error {
	if view == nil || view.Memory == nil {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No synthesized narrative yet."))
		return nil
	}

	md := NarrativeMarkdown(view.Memory)
	if raw {
		_, err := fmt.Fprint(w, md)
		return err
	}

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		return err
	}
	fmt.Fprint(w, rendered)
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("revision %d of %d, generated %s by %s",
		view.Memory.Revision,
		view.RevisionCount,
		view.Memory.GeneratedAt.Local().Format("2006-01-02 15:04"),
		view.Memory.Metadata.Generation.ModelUsed,
	)))
	return nil
}

func row(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
}
