package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent storyline configuration stored as
// config.toml in the .storyline/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Storage  StorageConfig  `toml:"storage"`
	API      APIConfig      `toml:"api"`
	LLM      LLMConfig      `toml:"llm"`
	Images   ImagesConfig   `toml:"images"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Events   EventsConfig   `toml:"events"`
	Search   SearchConfig   `toml:"search"`
	Log      LogConfig      `toml:"log"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	// Driver is one of sqlite, postgres, libsql or memory.
	Driver string `toml:"driver,omitempty"`

	// SQLitePath is the database file for the sqlite driver. Empty means
	// storyline.db inside the .storyline/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// DSN is the connection string for the postgres and libsql drivers.
	DSN string `toml:"dsn,omitempty"`
}

// APIConfig holds trigger API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LLMConfig holds text-generation settings.
type LLMConfig struct {
	Provider        string `toml:"provider,omitempty"`
	Model           string `toml:"model,omitempty"`
	ExtractionModel string `toml:"extraction_model,omitempty"`
	APIKey          string `toml:"api_key,omitempty"`
	BaseURL         string `toml:"base_url,omitempty"`
	Timeout         string `toml:"timeout,omitempty"`
	MaxRetries      int    `toml:"max_retries,omitempty"`
	RetryDelay      string `toml:"retry_delay,omitempty"`
}

// ImagesConfig holds image search settings. An empty access key disables
// image search and every theme falls back to the default image.
type ImagesConfig struct {
	UnsplashAccessKey string  `toml:"unsplash_access_key,omitempty"`
	BaseURL           string  `toml:"base_url,omitempty"`
	RatePerSecond     float64 `toml:"rate_per_second,omitempty"`
}

// PipelineConfig tunes the background workers and stage behavior.
type PipelineConfig struct {
	Workers        int     `toml:"workers,omitempty"`
	QueueSize      int     `toml:"queue_size,omitempty"`
	MaxAttempts    int     `toml:"max_attempts,omitempty"`
	RetryDelay     string  `toml:"retry_delay,omitempty"`
	MinConfidence  float64 `toml:"min_confidence,omitempty"`
	SecondaryLimit int     `toml:"secondary_limit,omitempty"`
}

// EventsConfig configures the story event publisher. Without brokers events
// are discarded.
type EventsConfig struct {
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	ClientID string `toml:"client_id,omitempty"`
}

// BrokerList splits the comma separated broker addresses.
func (e EventsConfig) BrokerList() []string {
	var brokers []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// SearchConfig enables similarity search over worthy contributions. An
// empty embedder disables it.
type SearchConfig struct {
	// Embedder is the embedding provider (ollama).
	Embedder string `toml:"embedder,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`

	// VectorStore is sqlitevec or memory.
	VectorStore string `toml:"vector_store,omitempty"`

	// VectorPath is the sqlite-vec database file. Empty means vectors.db
	// inside the .storyline/ directory.
	VectorPath string `toml:"vector_path,omitempty"`

	// Dimensions must match the embedding model.
	Dimensions int `toml:"dimensions,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Debug  bool   `toml:"debug,omitempty"`
	Format string `toml:"format,omitempty"`
}

// Duration parses a duration setting, returning fallback when it is empty or
// invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

var (
	storageDrivers = []string{"sqlite", "postgres", "libsql", "memory"}
	logFormats     = []string{"pretty", "text", "json"}
	embedders      = []string{"", "ollama"}
	vectorStores   = []string{"sqlitevec", "memory"}
)

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// keyOrder is the stable listing order, matching the TOML section layout.
var keyOrder = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.dsn",
	"api.listen",
	"llm.provider",
	"llm.model",
	"llm.extraction_model",
	"llm.api_key",
	"llm.base_url",
	"llm.timeout",
	"llm.max_retries",
	"llm.retry_delay",
	"images.unsplash_access_key",
	"images.base_url",
	"images.rate_per_second",
	"pipeline.workers",
	"pipeline.queue_size",
	"pipeline.max_attempts",
	"pipeline.retry_delay",
	"pipeline.min_confidence",
	"pipeline.secondary_limit",
	"events.brokers",
	"events.topic",
	"events.client_id",
	"search.embedder",
	"search.model",
	"search.base_url",
	"search.vector_store",
	"search.vector_path",
	"search.dimensions",
	"log.debug",
	"log.format",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			return setEnum(&c.Storage.Driver, "storage.driver", v, storageDrivers)
		},
	},
	"storage.sqlite_path": stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.dsn":         stringKey(func(c *Config) *string { return &c.Storage.DSN }),
	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),

	"llm.provider":         stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":            stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.extraction_model": stringKey(func(c *Config) *string { return &c.LLM.ExtractionModel }),
	"llm.api_key":          stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.base_url":         stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.timeout":          durationKey("llm.timeout", func(c *Config) *string { return &c.LLM.Timeout }),
	"llm.max_retries":      intKey("llm.max_retries", func(c *Config) *int { return &c.LLM.MaxRetries }),
	"llm.retry_delay":      durationKey("llm.retry_delay", func(c *Config) *string { return &c.LLM.RetryDelay }),

	"images.unsplash_access_key": stringKey(func(c *Config) *string { return &c.Images.UnsplashAccessKey }),
	"images.base_url":            stringKey(func(c *Config) *string { return &c.Images.BaseURL }),
	"images.rate_per_second":     floatKey("images.rate_per_second", func(c *Config) *float64 { return &c.Images.RatePerSecond }),

	"pipeline.workers":         intKey("pipeline.workers", func(c *Config) *int { return &c.Pipeline.Workers }),
	"pipeline.queue_size":      intKey("pipeline.queue_size", func(c *Config) *int { return &c.Pipeline.QueueSize }),
	"pipeline.max_attempts":    intKey("pipeline.max_attempts", func(c *Config) *int { return &c.Pipeline.MaxAttempts }),
	"pipeline.retry_delay":     durationKey("pipeline.retry_delay", func(c *Config) *string { return &c.Pipeline.RetryDelay }),
	"pipeline.min_confidence":  floatKey("pipeline.min_confidence", func(c *Config) *float64 { return &c.Pipeline.MinConfidence }),
	"pipeline.secondary_limit": intKey("pipeline.secondary_limit", func(c *Config) *int { return &c.Pipeline.SecondaryLimit }),

	"events.brokers":   stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":     stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.client_id": stringKey(func(c *Config) *string { return &c.Events.ClientID }),

	"search.embedder": {
		get: func(c *Config) string { return c.Search.Embedder },
		set: func(c *Config, v string) error {
			return setEnum(&c.Search.Embedder, "search.embedder", v, embedders)
		},
	},
	"search.model":    stringKey(func(c *Config) *string { return &c.Search.Model }),
	"search.base_url": stringKey(func(c *Config) *string { return &c.Search.BaseURL }),
	"search.vector_store": {
		get: func(c *Config) string { return c.Search.VectorStore },
		set: func(c *Config, v string) error {
			return setEnum(&c.Search.VectorStore, "search.vector_store", v, vectorStores)
		},
	},
	"search.vector_path": stringKey(func(c *Config) *string { return &c.Search.VectorPath }),
	"search.dimensions":  intKey("search.dimensions", func(c *Config) *int { return &c.Search.Dimensions }),

	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.debug: %w", err)
			}
			c.Log.Debug = b
			return nil
		},
	},
	"log.format": {
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error {
			return setEnum(&c.Log.Format, "log.format", v, logFormats)
		},
	},
}

func stringKey(field func(*Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(*Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for %s: %w", name, err)
				}
			}
			*field(c) = v
			return nil
		},
	}
}

func intKey(name string, field func(*Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(*Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = f
			return nil
		},
	}
}

func setEnum(target *string, name, v string, allowed []string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("invalid value for %s: %q (available: %s)", name, v, strings.Join(allowed, ", "))
	}
	*target = v
	return nil
}
