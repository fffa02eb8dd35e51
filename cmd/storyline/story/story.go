// Package storycmder provides the story command for creating and listing
// stories.
package storycmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/story"
)

const dateLayout = "2006-01-02"

const storyLongDesc string = `Manage stories.

A story owns the contributions shared about it, the entities mined from
them, its background theme and its synthesized narrative.

Examples:
  storyline story create --title "Summer in Paris" --start 2024-06-01 --end 2024-08-31
  storyline story list`

func NewStoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Manage stories",
		Long:  storyLongDesc,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

type createCommander struct {
	title       string
	description string
	start       string
	end         string
	noTheming   bool
}

func newCreateCmd() *cobra.Command {
	cmder := &createCommander{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := cmder.story()
			if err != nil {
				return err
			}
			return bootstrap.Run(cmd, bootstrap.StorageFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := rt.Service.CreateStory(ctx, st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Created story %s\n\n", cliui.Mark(nil), cliui.IDStyle.Render(st.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Story title")
	cmd.Flags().StringVar(&cmder.description, "description", "", "Story description")
	cmd.Flags().StringVar(&cmder.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&cmder.noTheming, "no-theming", false, "Disable background theming for this story")
	_ = cmd.MarkFlagRequired("title")
	bootstrap.AddFlags(cmd, bootstrap.StorageFlags...)

	return cmd
}

func (c *createCommander) story() (*story.Story, error) {
	start, err := parseDate(c.start)
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseDate(c.end)
	if err != nil {
		return nil, fmt.Errorf("invalid --end: %w", err)
	}
	return &story.Story{
		Title:          c.title,
		Description:    c.description,
		StartDate:      start,
		EndDate:        end,
		ThemingEnabled: !c.noTheming,
	}, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Run(cmd, bootstrap.StorageFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				stories, err := rt.Store.ListStories(ctx)
				if err != nil {
					return err
				}
				printStories(cmd.OutOrStdout(), stories)
				return nil
			})
		},
	}

	bootstrap.AddFlags(cmd, bootstrap.StorageFlags...)

	return cmd
}

func printStories(w io.Writer, stories []*story.Story) {
	if len(stories) == 0 {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No stories yet."))
		return
	}

	fmt.Fprintln(w)
	for _, st := range stories {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.IDStyle.Render(st.ID),
			cliui.TitleStyle.Render(st.Title),
			cliui.DimStyle.Render(st.CreatedAt.Format(dateLayout)),
		)
	}
	fmt.Fprintln(w)
}
