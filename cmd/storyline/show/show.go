// Package showcmder provides the show command for reading a story's
// synthesized narrative and its history.
package showcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/utils"
)

const showLongDesc string = `Show a story's synthesized narrative.

Renders the current narrative as markdown in the terminal. Use --revisions
to list every earlier version instead.

Examples:
  storyline show <story-id>
  storyline show <story-id> --raw > story.md
  storyline show <story-id> --revisions`

const showShortDesc string = "Show a story's narrative"

type showCommander struct {
	raw       bool
	revisions bool
}

func NewShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <story-id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.StorageFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")
	cmd.Flags().BoolVar(&cmder.revisions, "revisions", false, "List narrative revisions")
	bootstrap.AddFlags(cmd, bootstrap.StorageFlags...)

	return cmd
}

func (c *showCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	if c.revisions {
		return c.listRevisions(ctx, w, rt, storyID)
	}

	view, err := rt.Service.LatestSynthesis(ctx, storyID)
	if err != nil {
		return err
	}
	return report.PrintNarrative(w, view, c.raw)
}

func (c *showCommander) listRevisions(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	if _, err := rt.Store.GetStory(ctx, storyID); err != nil {
		return err
	}
	revisions, err := rt.Store.ListRevisions(ctx, storyID)
	if err != nil {
		return err
	}
	if len(revisions) == 0 {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No revisions yet."))
		return nil
	}

	fmt.Fprintln(w)
	for _, r := range revisions {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.IDStyle.Render(fmt.Sprintf("#%d", r.Revision)),
			cliui.DimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(utils.Truncate(r.Metadata.Title, 60)),
		)
	}
	fmt.Fprintln(w)
	return nil
}
