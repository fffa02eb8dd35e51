// Package watchcmder provides the watch command that follows a story's
// live events from a running API server.
package watchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/config"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/sse"
)

const watchLongDesc string = `Follow a story's live events.

Connects to the event stream of a running "storyline serve" and prints
theme and narrative updates as the pipeline produces them. The server
address defaults to the configured api.listen address.

Examples:
  storyline watch <story-id>
  storyline watch <story-id> --api http://storyline.internal:8082
  storyline watch <story-id> --count 1`

const watchShortDesc string = "Follow a story's live events"

var watchFlags = []string{config.FlagListen}

type watchCommander struct {
	api   string
	count int
}

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <story-id>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmder.api == "" {
				cfg, err := bootstrap.LoadConfig(cmd, watchFlags...)
				if err != nil {
					return err
				}
				cmder.api = BaseURL(cfg.API.Listen)
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.api, "api", "", "Base URL of the storyline API")
	cmd.Flags().IntVarP(&cmder.count, "count", "n", 0, "Exit after this many events (0 follows until interrupted)")
	bootstrap.AddFlags(cmd, watchFlags...)

	return cmd
}

// BaseURL turns a listen address into a URL a local client can dial.
func BaseURL(listen string) string {
	switch {
	case strings.HasPrefix(listen, "http://"), strings.HasPrefix(listen, "https://"):
		return strings.TrimSuffix(listen, "/")
	case strings.HasPrefix(listen, ":"):
		return "http://localhost" + listen
	default:
		return "http://" + listen
	}
}

func (c *watchCommander) run(ctx context.Context, w io.Writer, storyID string) error {
	url := c.api + "/v1/stories/" + storyID + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return fmt.Errorf("watching story %s: %s", storyID, body.Error)
	}

	r := sse.NewReader(resp.Body)
	for seen := 0; c.count == 0 || seen < c.count; seen++ {
		ev, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		if ev == nil {
			fmt.Fprintln(w, cliui.DimStyle.Render("  stream closed by server"))
			return nil
		}

		var event eventstream.StoryEvent
		if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
			return fmt.Errorf("decoding event %s: %w", ev.ID, err)
		}
		printEvent(w, &event)
	}
	return nil
}

func printEvent(w io.Writer, event *eventstream.StoryEvent) {
	stamp := cliui.DimStyle.Render(event.EmittedAt.Local().Format(time.TimeOnly))
	payload := event.Payload

	switch event.EventType {
	case eventstream.EventTypeThemeChanged:
		fmt.Fprintf(w, "%s %s\n", stamp, cliui.AccentStyle.Render("theme changed"))
		report.PrintTheme(w, payload.Theme)
	case eventstream.EventTypeSynthesisUpdated:
		title := "Untitled"
		if payload.Synthesis != nil && payload.Synthesis.Metadata.Title != "" {
			title = payload.Synthesis.Metadata.Title
		}
		fmt.Fprintf(w, "%s %s  %s\n\n", stamp, cliui.AccentStyle.Render("narrative updated"), cliui.TitleStyle.Render(title))
	default:
		if payload.Story != nil {
			fmt.Fprintf(w, "%s %s  %s\n", stamp, cliui.KeyStyle.Render("following"), cliui.TitleStyle.Render(payload.Story.Title))
		}
		fmt.Fprintf(w, "  %s %d\n\n", cliui.KeyStyle.Render("Worthy contributions:"), len(payload.Contributions))
	}
}
