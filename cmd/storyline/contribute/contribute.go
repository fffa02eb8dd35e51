// Package contributecmder provides the contribute command, which adds a
// contribution to a story and runs the pipeline for it.
package contributecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/story"
	"github.com/papercomputeco/storyline/pkg/utils"
)

const contributeLongDesc string = `Add a contribution to a story.

The contribution is stored and then classified. A memory-worthy
contribution goes on to entity extraction, theme analysis and narrative
synthesis before the command returns. Pass "-" as the body to read it
from stdin.

Examples:
  storyline contribute <story-id> --author Ana --body "We landed in Paris at dawn."
  echo "Dinner by the Seine." | storyline contribute <story-id> --author Ben --body -`

const contributeShortDesc string = "Add a contribution to a story"

type contributeCommander struct {
	author     string
	authorID   string
	subject    string
	body       string
	location   string
	occurredAt string
}

func NewContributeCmd() *cobra.Command {
	cmder := &contributeCommander{}

	cmd := &cobra.Command{
		Use:   "contribute <story-id>",
		Short: contributeShortDesc,
		Long:  contributeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.contribution(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return bootstrap.Run(cmd, bootstrap.PipelineFlags, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return cmder.run(ctx, cmd.OutOrStdout(), rt, c)
			})
		},
	}

	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Author display name")
	cmd.Flags().StringVar(&cmder.authorID, "author-id", "", "Author identifier")
	cmd.Flags().StringVar(&cmder.subject, "subject", "", "Contribution subject")
	cmd.Flags().StringVarP(&cmder.body, "body", "b", "", "Contribution text, or - to read stdin")
	cmd.Flags().StringVar(&cmder.location, "location", "", "Where the memory took place")
	cmd.Flags().StringVar(&cmder.occurredAt, "occurred-at", "", "When the memory took place (RFC 3339 or YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("body")
	bootstrap.AddFlags(cmd, bootstrap.PipelineFlags...)

	return cmd
}

func (c *contributeCommander) contribution(storyID string, stdin io.Reader) (*story.Contribution, error) {
	body := c.body
	if body == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading body from stdin: %w", err)
		}
		body = string(raw)
	}

	contribution, err := story.NewContribution(storyID, c.author, body)
	if err != nil {
		return nil, err
	}
	contribution.AuthorID = c.authorID
	contribution.Subject = strings.TrimSpace(c.subject)
	contribution.Location = strings.TrimSpace(c.location)

	if c.occurredAt != "" {
		t, err := utils.ParseTime(c.occurredAt)
		if err != nil {
			return nil, fmt.Errorf("invalid --occurred-at: %w", err)
		}
		contribution.OccurredAt = &t
	}
	return contribution, nil
}

func (c *contributeCommander) run(ctx context.Context, w io.Writer, rt *bootstrap.Runtime, contribution *story.Contribution) error {
	if _, err := rt.Store.GetStory(ctx, contribution.StoryID()); err != nil {
		return err
	}

	err := cliui.Step(w, "Processing contribution", func() error {
		return rt.Service.AddContribution(ctx, contribution)
	})
	if err != nil && !errors.Is(err, pipeline.ErrProcessing) {
		return err
	}

	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("Contribution:"), cliui.IDStyle.Render(contribution.ID))

	stored, getErr := rt.Store.GetContribution(ctx, contribution.ID)
	if getErr != nil {
		return errors.Join(err, getErr)
	}
	report.PrintWorthiness(w, stored)
	return err
}
