// Package reanalyzecmder provides the reanalyze command, which classifies
// contributions again.
package reanalyzecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
)

const reanalyzeLongDesc string = `Classify contributions again.

Given a contribution id, its previous classification is cleared and the
pipeline runs for it from the start. With --pending the argument is a
story id and every contribution still awaiting classification is processed.

Examples:
  storyline reanalyze <contribution-id>
  storyline reanalyze --pending <story-id>`

const reanalyzeShortDesc string = "Classify contributions again"

type reanalyzeCommander struct {
	pending bool
}

func NewReanalyzeCmd() *cobra.Command {
	cmder := &reanalyzeCommander{}

	cmd := &cobra.Command{
		Use:   "reanalyze <contribution-id>",
		Short: reanalyzeShortDesc,
		Long:  reanalyzeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if cmder.pending {
					return cmder.runPending(ctx, cmd.OutOrStdout(), rt, args[0])
				}
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&cmder.pending, "pending", false, "Treat the argument as a story id and process its unanalyzed contributions")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *reanalyzeCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, contributionID string) error {
	err := cliui.Step(w, "Reanalyzing contribution", func() error {
		return rt.Service.Reanalyze(ctx, contributionID)
	})
	if err != nil {
		return err
	}

	contribution, err := rt.Store.GetContribution(ctx, contributionID)
	if err != nil {
		return err
	}
	report.PrintWorthiness(w, contribution)
	return nil
}

func (c *reanalyzeCommander) runPending(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	var triggered int
	err := cliui.Step(w, "Processing pending contributions", func() error {
		var err error
		triggered, err = rt.Service.ReanalyzePending(ctx, storyID)
		return err
	})
	fmt.Fprintf(w, "  %s  %d\n\n", cliui.KeyStyle.Render("Processed:"), triggered)
	return err
}
