// Package analyzecmder provides the analyze command, which runs the whole
// pipeline for a story or a single contribution.
package analyzecmder

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
)

const analyzeLongDesc string = `Run the pipeline for a story.

Classifies every unanalyzed contribution, extracts entities from every
memory-worthy one, then refreshes the theme and the synthesized narrative.
With --contribution only that contribution is classified, followed by the
stages its outcome triggers.

Examples:
  storyline analyze <story-id>
  storyline analyze <story-id> --contribution <contribution-id>`

const analyzeShortDesc string = "Run the pipeline for a story"

type analyzeCommander struct {
	contributionID string
}

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{}

	cmd := &cobra.Command{
		Use:   "analyze <story-id>",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	cmd.Flags().StringVarP(&cmder.contributionID, "contribution", "c", "", "Only process this contribution")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *analyzeCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	st, err := rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(w, st)

	if c.contributionID != "" {
		contribution, err := rt.Store.GetContribution(ctx, c.contributionID)
		if err != nil {
			return err
		}
		err = cliui.Step(w, "Processing contribution", func() error {
			return rt.Service.RunContribution(ctx, contribution.ID)
		})
		if err != nil {
			return err
		}
	} else {
		err = cliui.Step(w, "Processing story", func() error {
			return rt.Service.RunStory(ctx, storyID)
		})
		if err != nil {
			return err
		}
	}

	stats, err := rt.Service.ProcessingStats(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStats(w, stats)
	return nil
}
