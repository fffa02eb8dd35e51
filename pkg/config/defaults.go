package config

import (
	"strconv"
	"time"

	"github.com/papercomputeco/storyline/pkg/embeddings/ollama"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/imagesearch/unsplash"
	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/theme"
)

const (
	defaultStorageDriver = "sqlite"
	defaultAPIListen     = ":8082"
	defaultLLMProvider   = "openai"
	defaultWorkers       = 4
	defaultQueueSize     = 256
	defaultEventsTopic   = "storyline.story-events"
	defaultEventsClient  = "storyline"
	defaultLogFormat     = "pretty"
	defaultVectorStore   = "sqlitevec"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		LLM: LLMConfig{
			Provider:   defaultLLMProvider,
			Timeout:    llm.DefaultTimeout.String(),
			MaxRetries: llm.DefaultMaxRetries,
			RetryDelay: llm.DefaultRetryDelay.String(),
		},
		Images: ImagesConfig{
			BaseURL:       unsplash.DefaultBaseURL,
			RatePerSecond: unsplash.DefaultRatePerSecond,
		},
		Pipeline: PipelineConfig{
			Workers:        defaultWorkers,
			QueueSize:      defaultQueueSize,
			MaxAttempts:    pipeline.DefaultMaxAttempts,
			RetryDelay:     pipeline.DefaultRetryDelay.String(),
			MinConfidence:  extractor.DefaultMinConfidence,
			SecondaryLimit: theme.DefaultSecondaryLimit,
		},
		Events: EventsConfig{
			Topic:    defaultEventsTopic,
			ClientID: defaultEventsClient,
		},
		Search: SearchConfig{
			Model:       ollama.DefaultEmbeddingModel,
			VectorStore: defaultVectorStore,
			Dimensions:  ollama.DefaultDimensions,
		},
		Log: LogConfig{
			Format: defaultLogFormat,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	fillString(&cfg.Storage.Driver, defaults.Storage.Driver)
	fillString(&cfg.API.Listen, defaults.API.Listen)

	fillString(&cfg.LLM.Provider, defaults.LLM.Provider)
	fillString(&cfg.LLM.Timeout, defaults.LLM.Timeout)
	fillString(&cfg.LLM.RetryDelay, defaults.LLM.RetryDelay)
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = defaults.LLM.MaxRetries
	}

	fillString(&cfg.Images.BaseURL, defaults.Images.BaseURL)
	if cfg.Images.RatePerSecond == 0 {
		cfg.Images.RatePerSecond = defaults.Images.RatePerSecond
	}

	p, dp := &cfg.Pipeline, defaults.Pipeline
	fillInt(&p.Workers, dp.Workers)
	fillInt(&p.QueueSize, dp.QueueSize)
	fillInt(&p.MaxAttempts, dp.MaxAttempts)
	fillInt(&p.SecondaryLimit, dp.SecondaryLimit)
	fillString(&p.RetryDelay, dp.RetryDelay)
	if p.MinConfidence == 0 {
		p.MinConfidence = dp.MinConfidence
	}

	fillString(&cfg.Events.Topic, defaults.Events.Topic)
	fillString(&cfg.Events.ClientID, defaults.Events.ClientID)
	fillString(&cfg.Search.Model, defaults.Search.Model)
	fillString(&cfg.Search.VectorStore, defaults.Search.VectorStore)
	fillInt(&cfg.Search.Dimensions, defaults.Search.Dimensions)
	fillString(&cfg.Log.Format, defaults.Log.Format)
}

func fillString(target *string, def string) {
	if *target == "" {
		*target = def
	}
}

func fillInt(target *int, def int) {
	if *target == 0 {
		*target = def
	}
}

// defaultValue renders the default for a dotted key the same way
// GetConfigValue renders a loaded one.
func defaultValue(key string) string {
	info, ok := configKeys[key]
	if !ok {
		return ""
	}
	return info.get(NewDefaultConfig())
}

// defaultInt is defaultValue parsed as an int, zero when unset.
func defaultInt(key string) int {
	n, _ := strconv.Atoi(defaultValue(key))
	return n
}

// defaultDuration is defaultValue parsed as a duration.
func defaultDuration(key string) time.Duration {
	return Duration(defaultValue(key), 0)
}
