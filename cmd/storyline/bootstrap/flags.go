package bootstrap

import (
	"context"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/pkg/config"
)

// StorageFlags are the registry keys selecting the storage driver.
var StorageFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagDSN,
}

// PipelineFlags are the registry keys every pipeline-running command accepts.
var PipelineFlags = append(slices.Clone(StorageFlags),
	config.FlagProvider,
	config.FlagModel,
	config.FlagMaxAttempts,
	config.FlagRetryDelay,
	config.FlagMinConfidence,
	config.FlagUnsplashKey,
	config.FlagSecondaryLimit,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagEmbedder,
	config.FlagLogFormat,
)

// AddFlags registers the given registry flags on cmd. Values reach commands
// through viper, so the flag targets are owned here.
func AddFlags(cmd *cobra.Command, registryKeys ...string) {
	for _, key := range registryKeys {
		switch key {
		case config.FlagWorkers, config.FlagMaxAttempts, config.FlagSecondaryLimit:
			config.AddIntFlag(cmd, config.Flags, key, new(int))
		case config.FlagMinConfidence:
			config.AddFloatFlag(cmd, config.Flags, key, new(float64))
		case config.FlagRetryDelay:
			config.AddDurationFlag(cmd, config.Flags, key, new(time.Duration))
		default:
			config.AddStringFlag(cmd, config.Flags, key, new(string))
		}
	}
}

// Run loads configuration for cmd, opens a synchronous runtime and calls fn
// with it. The runtime is closed when fn returns.
func Run(cmd *cobra.Command, registryKeys []string, fn func(ctx context.Context, rt *Runtime) error) error {
	cfg, err := LoadConfig(cmd, registryKeys...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := Open(ctx, cfg, NewLogger(cfg, cmd.ErrOrStderr()), Options{})
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt)
}
