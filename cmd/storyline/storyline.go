// Package storylinecmder
package storylinecmder

import (
	"github.com/spf13/cobra"

	analyzecmder "github.com/papercomputeco/storyline/cmd/storyline/analyze"
	configcmder "github.com/papercomputeco/storyline/cmd/storyline/config"
	contributecmder "github.com/papercomputeco/storyline/cmd/storyline/contribute"
	ingestcmder "github.com/papercomputeco/storyline/cmd/storyline/ingest"
	reanalyzecmder "github.com/papercomputeco/storyline/cmd/storyline/reanalyze"
	searchcmder "github.com/papercomputeco/storyline/cmd/storyline/search"
	servecmder "github.com/papercomputeco/storyline/cmd/storyline/serve"
	showcmder "github.com/papercomputeco/storyline/cmd/storyline/show"
	statuscmder "github.com/papercomputeco/storyline/cmd/storyline/status"
	storycmder "github.com/papercomputeco/storyline/cmd/storyline/story"
	synthesizecmder "github.com/papercomputeco/storyline/cmd/storyline/synthesize"
	themecmder "github.com/papercomputeco/storyline/cmd/storyline/theme"
	watchcmder "github.com/papercomputeco/storyline/cmd/storyline/watch"
	versioncmder "github.com/papercomputeco/storyline/cmd/version"
)

const storylineLongDesc string = `Storyline turns a stream of contributed memories into a living story.

Each contribution is classified, mined for people, places and things, and
folded into a themed, synthesized narrative.

Run the service using:
  storyline serve              Run the trigger API and background pipeline
  storyline watch              Follow a story's live events from the API

Or drive the pipeline directly:
  storyline story create       Create a story
  storyline contribute         Add a contribution and process it
  storyline analyze            Re-run the pipeline for a story
  storyline status             Show processing progress
  storyline show               Render the synthesized narrative
  storyline search             Find contributions by meaning`

const storylineShortDesc string = "Storyline - collaborative memory synthesis"

func NewStorylineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "storyline",
		Short:        storylineShortDesc,
		Long:         storylineLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .storyline/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(storycmder.NewStoryCmd())
	cmd.AddCommand(contributecmder.NewContributeCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(themecmder.NewThemeCmd())
	cmd.AddCommand(synthesizecmder.NewSynthesizeCmd())
	cmd.AddCommand(reanalyzecmder.NewReanalyzeCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(showcmder.NewShowCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
