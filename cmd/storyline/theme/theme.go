// Package themecmder provides the theme command for refreshing a story's
// background theme.
package themecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
)

const themeLongDesc string = `Refresh a story's theme.

Ranks the story's entities, picks the primary and secondary entities and
looks up fresh background images for them, even when the primary entity
has not changed. Use --show to print the stored theme without refreshing.

Examples:
  storyline theme <story-id>
  storyline theme <story-id> --show`

const themeShortDesc string = "Refresh a story's theme"

type themeCommander struct {
	show bool
}

func NewThemeCmd() *cobra.Command {
	cmder := &themeCommander{}

	cmd := &cobra.Command{
		Use:   "theme <story-id>",
		Short: themeShortDesc,
		Long:  themeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&cmder.show, "show", false, "Print the stored theme without refreshing it")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *themeCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	st, err := rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(w, st)

	if !c.show {
		err = cliui.Step(w, "Analyzing theme", func() error {
			return rt.Service.RefreshTheme(ctx, storyID)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	data, err := rt.Service.CurrentTheme(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintTheme(w, data)
	return nil
}
