// Package synthesizecmder provides the synthesize command, which regenerates
// a story's narrative from its memory-worthy contributions.
package synthesizecmder

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
)

const synthesizeLongDesc string = `Regenerate a story's synthesized narrative.

Every memory-worthy contribution is woven into a single third-person
narrative. The previous narrative is kept as a revision. Stories without
memory-worthy contributions are left untouched.

Examples:
  storyline synthesize <story-id>
  storyline synthesize <story-id> --raw`

const synthesizeShortDesc string = "Regenerate a story's narrative"

type synthesizeCommander struct {
	raw bool
}

func NewSynthesizeCmd() *cobra.Command {
	cmder := &synthesizeCommander{}

	cmd := &cobra.Command{
		Use:   "synthesize <story-id>",
		Short: synthesizeShortDesc,
		Long:  synthesizeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal rendering")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *synthesizeCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	st, err := rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(w, st)

	err = cliui.Step(w, "Synthesizing narrative", func() error {
		return rt.Service.RegenerateSynthesis(ctx, storyID)
	})
	if err != nil {
		return err
	}

	view, err := rt.Service.LatestSynthesis(ctx, storyID)
	if err != nil {
		return err
	}
	return report.PrintNarrative(w, view, c.raw)
}
