// Package statuscmder provides the status command for displaying a story's
// processing progress, theme and entities.
package statuscmder

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
)

const statusLongDesc string = `Show a story's processing state.

Displays how many contributions were classified and found memory-worthy,
the distribution of memory types, the contributors, the current theme and
the entities mined so far.

Examples:
  storyline status <story-id>`

const statusShortDesc string = "Show a story's processing state"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <story-id>",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd, bootstrap.StorageFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return runStatus(ctx, cmd.OutOrStdout(), rt, args[0])
			})
		},
	}

	bootstrap.AddFlags(cmd, bootstrap.StorageFlags...)

	return cmd
}

func runStatus(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, storyID string) error {
	st, err := rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(w, st)

	stats, err := rt.Service.ProcessingStats(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStats(w, stats)

	types, err := rt.Service.MemoryTypesDistribution(ctx, storyID)
	if err != nil {
		return err
	}
	if len(types) > 0 {
		for _, name := range slices.Sorted(maps.Keys(types)) {
			fmt.Fprintf(w, "  %s  %d\n", cliui.KeyStyle.Render(fmt.Sprintf("%-13s", name)), types[name])
		}
		fmt.Fprintln(w)
	}

	contributors, err := rt.Service.MemoryContributors(ctx, storyID)
	if err != nil {
		return err
	}
	for _, c := range contributors {
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("●"), cliui.ValueStyle.Render(c.Name))
	}
	if len(contributors) > 0 {
		fmt.Fprintln(w)
	}

	if st.ThemingEnabled {
		data, err := rt.Service.CurrentTheme(ctx, storyID)
		if err != nil {
			return err
		}
		report.PrintTheme(w, data)
	}

	list, err := rt.Store.ListEntities(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintEntities(w, list)
	return nil
}
