// Package configcmder provides the config command for managing persistent
// storyline configuration stored in the .storyline/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/config"
)

const configLongDesc string = `Manage persistent storyline configuration.

Configuration is stored as config.toml in the .storyline/ directory and
provides default values for command flags. CLI flags and STORYLINE_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.dsn,
  api.listen,
  llm.provider, llm.model, llm.extraction_model, llm.api_key, llm.base_url,
  llm.timeout, llm.max_retries, llm.retry_delay,
  images.unsplash_access_key, images.base_url, images.rate_per_second,
  pipeline.workers, pipeline.queue_size, pipeline.max_attempts,
  pipeline.retry_delay, pipeline.min_confidence, pipeline.secondary_limit,
  events.brokers, events.topic, events.client_id,
  log.debug, log.format

Use subcommands to get, set, or list configuration values:
  storyline config set <key> <value>    Set a configuration value
  storyline config get <key>            Get a configuration value
  storyline config list                 List all configuration values

Examples:
  storyline config set llm.provider gemini
  storyline config set pipeline.workers 8
  storyline config get llm.provider
  storyline config list`

const configShortDesc string = "Manage persistent storyline configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}

// isSecret reports whether key holds a credential that should not be echoed.
func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "access_key")
}

// mask keeps the last four characters of a secret.
func mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", 8) + value[len(value)-4:]
}
