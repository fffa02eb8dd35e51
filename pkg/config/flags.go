package config

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --provider
// on both "storyline serve" and "storyline analyze").
type Flag struct {
	// Name is the long flag name (e.g. "provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "llm.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagStorageDriver  = "storage-driver"
	FlagSQLite         = "sqlite"
	FlagDSN            = "dsn"
	FlagProvider       = "provider"
	FlagModel          = "model"
	FlagWorkers        = "workers"
	FlagMaxAttempts    = "max-attempts"
	FlagRetryDelay     = "retry-delay"
	FlagMinConfidence  = "min-confidence"
	FlagUnsplashKey    = "unsplash-key"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagLogFormat      = "log-format"
	FlagSecondaryLimit = "secondary-limit"
	FlagEmbedder       = "embedder"
)

// Flags is the registry shared by every storyline command.
var Flags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagStorageDriver:  {Name: "storage", ViperKey: "storage.driver", Description: "Storage driver (sqlite, postgres, libsql, memory)"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: .storyline/storyline.db)"},
	FlagDSN:            {Name: "dsn", ViperKey: "storage.dsn", Description: "Connection string for the postgres or libsql driver"},
	FlagProvider:       {Name: "provider", Shorthand: "p", ViperKey: "llm.provider", Description: "Text generation provider (openai, gemini, ollama)"},
	FlagModel:          {Name: "model", Shorthand: "m", ViperKey: "llm.model", Description: "Model for classification and synthesis"},
	FlagWorkers:        {Name: "workers", Shorthand: "w", ViperKey: "pipeline.workers", Description: "Number of pipeline workers"},
	FlagMaxAttempts:    {Name: "max-attempts", ViperKey: "pipeline.max_attempts", Description: "Attempts per retryable pipeline stage"},
	FlagRetryDelay:     {Name: "retry-delay", ViperKey: "pipeline.retry_delay", Description: "First backoff between stage attempts"},
	FlagMinConfidence:  {Name: "min-confidence", ViperKey: "pipeline.min_confidence", Description: "Minimum confidence for persisting an extracted entity"},
	FlagUnsplashKey:    {Name: "unsplash-key", ViperKey: "images.unsplash_access_key", Description: "Unsplash access key (empty disables image search)"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers for story events"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "events.topic", Description: "Kafka topic for story events"},
	FlagLogFormat:      {Name: "log-format", ViperKey: "log.format", Description: "Log output format (pretty, text, json)"},
	FlagSecondaryLimit: {Name: "secondary-limit", ViperKey: "pipeline.secondary_limit", Description: "Number of secondary theme images"},
	FlagEmbedder:       {Name: "embedder", ViperKey: "search.embedder", Description: "Embedding provider for contribution search (ollama; empty disables)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultValue(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, key string, target *float64) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal, _ := strconv.ParseFloat(defaultValue(def.ViperKey), 64)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string, target *time.Duration) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}
