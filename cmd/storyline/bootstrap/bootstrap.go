// Package bootstrap resolves configuration for a storyline command and
// builds the storage, generation, image search and event publishing
// dependencies that the pipeline runs on.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/pkg/classifier"
	"github.com/papercomputeco/storyline/pkg/config"
	"github.com/papercomputeco/storyline/pkg/dotdir"
	"github.com/papercomputeco/storyline/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/storyline/pkg/embeddings/utils"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/eventstream/broadcast"
	"github.com/papercomputeco/storyline/pkg/eventstream/kafka"
	"github.com/papercomputeco/storyline/pkg/eventstream/nop"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/imagesearch"
	"github.com/papercomputeco/storyline/pkg/imagesearch/unsplash"
	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/llm/provider"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/storage/inmemory"
	"github.com/papercomputeco/storyline/pkg/storage/libsql"
	"github.com/papercomputeco/storyline/pkg/storage/postgres"
	"github.com/papercomputeco/storyline/pkg/storage/sqlite"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
	"github.com/papercomputeco/storyline/pkg/vector"
	vectormem "github.com/papercomputeco/storyline/pkg/vector/inmemory"
	"github.com/papercomputeco/storyline/pkg/vector/sqlitevec"
)

const kafkaWriteTimeout = 10 * time.Second

// LoadConfig resolves the effective configuration for cmd. The registry keys
// name the flags cmd registered from config.Flags; their values take
// precedence over env, config file and defaults. The persistent --debug
// flag forces debug logging.
func LoadConfig(cmd *cobra.Command, registryKeys ...string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, registryKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logger.New(
		logger.WithDebug(cfg.Log.Debug),
		logger.WithFormat(logger.Format(cfg.Log.Format)),
		logger.WithWriter(w),
	)
}

// Runtime holds the wired dependencies of a command.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     storage.Driver
	Publisher eventstream.Publisher
	Service   *pipeline.Service

	// Broker fans pipeline events out to in-process subscribers. It is
	// also part of Publisher.
	Broker *broadcast.Broker

	// Index is nil when search is disabled.
	Index *recall.Index
}

// Options controls how Open wires the pipeline.
type Options struct {
	// Async runs stages on the background worker pool.
	Async bool

	// Generator replaces the configured text generation provider.
	Generator llm.Generator

	// Searcher replaces the configured image searcher.
	Searcher imagesearch.Searcher

	// Embedder replaces the configured embedding provider and enables
	// search regardless of search.embedder.
	Embedder embeddings.Embedder
}

// Open builds every dependency named by cfg. Callers must Close the runtime.
func Open(ctx context.Context, cfg *config.Config, l *slog.Logger, opts Options) (*Runtime, error) {
	if l == nil {
		l = logger.Nop()
	}

	store, err := OpenStore(ctx, cfg.Storage, l)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: l, Store: store}

	gen := opts.Generator
	if gen == nil {
		gen, err = NewGenerator(ctx, cfg.LLM, l)
		if err != nil {
			rt.Close()
			return nil, err
		}
	}

	searcher := opts.Searcher
	if searcher == nil {
		searcher, err = NewSearcher(cfg.Images)
		if err != nil {
			rt.Close()
			return nil, err
		}
	}

	external, err := NewPublisher(cfg.Events, l)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Broker = broadcast.New(broadcast.WithLogger(l))
	rt.Publisher = eventstream.NewFanout(external, rt.Broker)

	rt.Index, err = NewIndex(cfg.Search, store, opts.Embedder, l)
	if err != nil {
		rt.Close()
		return nil, err
	}

	classifierOpts := []classifier.Option{classifier.WithLogger(l)}
	synthesisOpts := []synthesis.Option{synthesis.WithLogger(l)}
	if cfg.LLM.Model != "" {
		classifierOpts = append(classifierOpts, classifier.WithModel(cfg.LLM.Model))
		synthesisOpts = append(synthesisOpts, synthesis.WithModel(cfg.LLM.Model))
	}

	extractorOpts := []extractor.Option{extractor.WithLogger(l)}
	if cfg.Pipeline.MinConfidence > 0 {
		extractorOpts = append(extractorOpts, extractor.WithMinConfidence(cfg.Pipeline.MinConfidence))
	}
	if cfg.LLM.ExtractionModel != "" {
		extractorOpts = append(extractorOpts, extractor.WithModel(cfg.LLM.ExtractionModel))
	}

	themeOpts := []theme.ManagerOption{theme.WithLogger(l)}
	if cfg.Pipeline.SecondaryLimit > 0 {
		themeOpts = append(themeOpts, theme.WithSecondaryLimit(cfg.Pipeline.SecondaryLimit))
	}
	resolver := theme.NewResolver(searcher, theme.WithResolverLogger(l))

	rt.Service, err = pipeline.New(pipeline.Config{
		Store:       store,
		Classifier:  classifier.New(store, gen, classifierOpts...),
		Extractor:   extractor.New(store, gen, extractorOpts...),
		Themes:      theme.NewManager(store, resolver, themeOpts...),
		Synthesizer: synthesis.New(store, gen, synthesisOpts...),
		Publisher:   rt.Publisher,
		Index:       rt.Index,
		Async:       opts.Async,
		Workers:     uint(max(cfg.Pipeline.Workers, 0)),
		QueueSize:   uint(max(cfg.Pipeline.QueueSize, 0)),
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		RetryDelay:  config.Duration(cfg.Pipeline.RetryDelay, pipeline.DefaultRetryDelay),
		Logger:      l,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return rt, nil
}

// Close drains the pipeline and releases the publisher, index and store.
func (r *Runtime) Close() error {
	if r.Service != nil {
		r.Service.Close()
	}

	var errs []error
	if r.Publisher != nil {
		errs = append(errs, r.Publisher.Close())
	}
	if r.Index != nil {
		errs = append(errs, r.Index.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// OpenStore opens the storage driver selected by cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig, l *slog.Logger) (storage.Driver, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().DatabasePath("")
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		l.Info("using SQLite storage", "path", path)
		return driver, nil

	case "postgres":
		if cfg.DSN == "" {
			return nil, errors.New("storage.dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres storer: %w", err)
		}
		l.Info("using postgres storage")
		return driver, nil

	case "libsql":
		if cfg.DSN == "" {
			return nil, errors.New("storage.dsn is required for the libsql driver")
		}
		driver, err := libsql.NewDriver(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql storer: %w", err)
		}
		l.Info("using libsql storage")
		return driver, nil

	case "memory":
		l.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// NewGenerator creates the configured provider wrapped with timeouts and
// retries.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, l *slog.Logger) (llm.Generator, error) {
	gen, err := provider.New(ctx, provider.Config{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Logger:   l,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}

	return llm.WithResilience(gen, llm.ResilienceOptions{
		Timeout:    config.Duration(cfg.Timeout, llm.DefaultTimeout),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: config.Duration(cfg.RetryDelay, llm.DefaultRetryDelay),
		Logger:     l,
	}), nil
}

// NewSearcher returns the Unsplash client, or nil when no access key is
// configured. A nil searcher makes every theme use the default image.
func NewSearcher(cfg config.ImagesConfig) (imagesearch.Searcher, error) {
	if cfg.UnsplashAccessKey == "" {
		return nil, nil
	}
	client, err := unsplash.New(unsplash.Config{
		AccessKey:     cfg.UnsplashAccessKey,
		BaseURL:       cfg.BaseURL,
		RatePerSecond: cfg.RatePerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("creating unsplash client: %w", err)
	}
	return client, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg config.EventsConfig, l *slog.Logger) (eventstream.Publisher, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers:      brokers,
		Topic:        cfg.Topic,
		ClientID:     cfg.ClientID,
		WriteTimeout: kafkaWriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	l.Info("publishing story events", "brokers", brokers, "topic", cfg.Topic)
	return pub, nil
}

// NewIndex builds the search index, or returns nil when no embedder is
// configured. A non-nil embedder overrides the configured provider.
func NewIndex(cfg config.SearchConfig, store storage.Driver, embedder embeddings.Embedder, l *slog.Logger) (*recall.Index, error) {
	if embedder == nil {
		if cfg.Embedder == "" {
			return nil, nil
		}
		var err error
		embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedder,
			TargetURL:    cfg.BaseURL,
			Model:        cfg.Model,
		})
		if err != nil {
			return nil, err
		}
	}

	vectors, err := OpenVectors(cfg, l)
	if err != nil {
		return nil, err
	}
	l.Info("contribution search enabled", "vector_store", cfg.VectorStore, "model", cfg.Model)
	return recall.New(store, embedder, vectors, recall.WithLogger(l)), nil
}

// OpenVectors opens the vector driver selected by cfg.
func OpenVectors(cfg config.SearchConfig, l *slog.Logger) (vector.Driver, error) {
	switch cfg.VectorStore {
	case "", "sqlitevec":
		path := cfg.VectorPath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().VectorPath("")
			if err != nil {
				return nil, fmt.Errorf("resolving vector path: %w", err)
			}
		}
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     path,
			Dimensions: cfg.Dimensions,
			Logger:     l,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite-vec driver: %w", err)
		}
		return driver, nil

	case "memory":
		return vectormem.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown vector store: %q", cfg.VectorStore)
	}
}
