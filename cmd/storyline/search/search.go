// Package searchcmder provides the search command for finding a story's
// contributions by meaning.
package searchcmder

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
)

const searchLongDesc string = `Search a story's worthy contributions by meaning.

Requires an embedder (--embedder ollama or search.embedder in config.toml).
Contributions are indexed as they are classified worthy; run
"storyline analyze <story-id>" to index a story processed before search
was enabled.

Examples:
  storyline search <story-id> dinner by the river
  storyline search <story-id> "first day of school" -n 3`

const searchShortDesc string = "Search a story's contributions"

type searchCommander struct {
	limit int
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <story-id> <query...>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0], strings.Join(args[1:], " "))
			})
		},
	}

	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 5, "Maximum number of matches")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID, query string) error {
	st, err := rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(w, st)

	matches, err := rt.Service.Search(ctx, storyID, query, c.limit)
	if err != nil {
		return err
	}
	report.PrintMatches(w, matches)
	return nil
}
