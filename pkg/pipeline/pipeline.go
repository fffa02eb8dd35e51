// Package pipeline sequences the contribution stages (classify, extract,
// theme, synthesize) and exposes the operator actions that trigger them.
//
// Stages communicate only through persisted state. A worthy classification
// schedules extraction and synthesis, plus indexing when search is
// configured; extraction schedules a theme check.
// Theme checks notify observers only when the background image changes,
// while every successful synthesis notifies.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/storyline/pkg/classifier"
	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/eventstream/nop"
	"github.com/papercomputeco/storyline/pkg/extractor"
	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/synthesis"
	"github.com/papercomputeco/storyline/pkg/theme"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Config wires a Service.
type Config struct {
	Store       storage.Driver
	Classifier  *classifier.Classifier
	Extractor   *extractor.Extractor
	Themes      *theme.Manager
	Synthesizer *synthesis.Synthesizer

	// Publisher receives change notifications. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Index enables similarity search over worthy contributions. Optional.
	Index *recall.Index

	// Async runs stages on a worker pool. When false, triggers run their
	// stages inline before returning.
	Async     bool
	Workers   uint
	QueueSize uint

	// MaxAttempts bounds runs of a retryable stage, including the first.
	MaxAttempts int

	// RetryDelay is the first backoff between attempts; it doubles each time.
	RetryDelay time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Service orchestrates the pipeline for all stories.
type Service struct {
	store       storage.Driver
	classifier  *classifier.Classifier
	extractor   *extractor.Extractor
	themes      *theme.Manager
	synthesizer *synthesis.Synthesizer
	publisher   eventstream.Publisher
	index       *recall.Index

	pool        *Pool
	locks       *keyedMutex
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Service and, in async mode, starts its worker pool.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if cfg.Classifier == nil || cfg.Extractor == nil || cfg.Themes == nil || cfg.Synthesizer == nil {
		return nil, errors.New("pipeline: every stage must be configured")
	}

	s := &Service{
		store:       cfg.Store,
		classifier:  cfg.Classifier,
		extractor:   cfg.Extractor,
		themes:      cfg.Themes,
		synthesizer: cfg.Synthesizer,
		publisher:   cfg.Publisher,
		index:       cfg.Index,
		locks:       newKeyedMutex(),
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger.Component(cfg.Logger, "pipeline"),
		now:         cfg.Now,
	}
	if s.publisher == nil {
		s.publisher = nop.NewPublisher()
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	if s.now == nil {
		s.now = time.Now
	}

	if cfg.Async {
		pool, err := NewPool(&PoolConfig{
			NumWorkers: cfg.Workers,
			QueueSize:  cfg.QueueSize,
			Logger:     s.logger,
		}, s.handle)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	return s, nil
}

// Drain waits for queued jobs and their follow-ups. It returns immediately
// in synchronous mode.
func (s *Service) Drain() {
	if s.pool != nil {
		s.pool.Drain()
	}
}

// Close drains and stops the worker pool. The publisher is left open.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// dispatch queues a job in async mode, or runs it and its follow-ups inline.
func (s *Service) dispatch(ctx context.Context, job Job) error {
	if s.pool != nil {
		return s.pool.Enqueue(job)
	}
	return s.runInline(ctx, job)
}

// handle is the pool handler: run the stage, then queue its follow-ups.
func (s *Service) handle(ctx context.Context, job Job) {
	followups, err := s.runStage(ctx, job)
	if err != nil {
		return
	}
	for _, f := range followups {
		if err := s.pool.Enqueue(f); err != nil {
			s.logger.Error("failed to queue follow-up job", append(f.attrs(), "error", err)...)
		}
	}
}

// runInline runs a job and its follow-ups depth first, joining their errors.
func (s *Service) runInline(ctx context.Context, job Job) error {
	followups, err := s.runStage(ctx, job)
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range followups {
		if err := s.runInline(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runStage runs one stage with retries for retryable kinds. A missing story
// or contribution ends the job without error.
func (s *Service) runStage(ctx context.Context, job Job) ([]Job, error) {
	attempts := 1
	if job.Kind.Retryable() {
		attempts = s.maxAttempts
	}

	delay := s.retryDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			s.logger.Warn("retrying job", append(job.attrs(), "attempt", attempt, "delay", delay, "error", err)...)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		var followups []Job
		followups, err = s.execute(ctx, job)
		switch {
		case err == nil:
			return followups, nil
		case storage.IsNotFound(err):
			s.logger.Warn("record gone, skipping job", append(job.attrs(), "error", err)...)
			return nil, nil
		case ctx.Err() != nil:
			return nil, err
		}
	}

	s.logger.Error("job failed", append(job.attrs(), "attempts", attempts, "error", err)...)
	return nil, fmt.Errorf("%s job failed after %d attempts: %w", job.Kind, attempts, err)
}

func (s *Service) execute(ctx context.Context, job Job) ([]Job, error) {
	switch job.Kind {
	case JobClassify:
		return s.classify(ctx, job)
	case JobExtract:
		return s.extract(ctx, job)
	case JobTheme:
		return nil, s.theme(ctx, job)
	case JobSynthesize:
		return nil, s.synthesize(ctx, job)
	case JobIndex:
		return nil, s.indexContribution(ctx, job)
	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (s *Service) classify(ctx context.Context, job Job) ([]Job, error) {
	res, err := s.classifier.Classify(ctx, job.ContributionID)
	if err != nil {
		return nil, err
	}
	if res.Skipped {
		return nil, nil
	}
	if !res.Worthy {
		s.unindex(ctx, job.ContributionID)
		return nil, nil
	}

	storyID := job.StoryID
	if storyID == "" {
		c, err := s.store.GetContribution(ctx, job.ContributionID)
		if err != nil {
			return nil, err
		}
		storyID = c.StoryID()
	}
	followups := []Job{
		{Kind: JobExtract, StoryID: storyID, ContributionID: job.ContributionID},
		{Kind: JobSynthesize, StoryID: storyID},
	}
	if s.index != nil {
		followups = append(followups, Job{Kind: JobIndex, StoryID: storyID, ContributionID: job.ContributionID})
	}
	return followups, nil
}

func (s *Service) indexContribution(ctx context.Context, job Job) error {
	if s.index == nil {
		return nil
	}
	return s.index.Add(ctx, job.ContributionID)
}

// unindex drops a contribution classified as not worthy. A stale entry is
// filtered out at search time, so failures are only logged.
func (s *Service) unindex(ctx context.Context, contributionID string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, contributionID); err != nil {
		s.logger.Warn("failed to remove contribution from index", "contribution_id", contributionID, "error", err)
	}
}

func (s *Service) extract(ctx context.Context, job Job) ([]Job, error) {
	if _, err := s.extractor.Extract(ctx, job.ContributionID); err != nil {
		return nil, err
	}
	return []Job{{Kind: JobTheme, StoryID: job.StoryID}}, nil
}

func (s *Service) theme(ctx context.Context, job Job) error {
	unlock := s.locks.Lock("theme:" + job.StoryID)
	defer unlock()

	var (
		out theme.Outcome
		err error
	)
	if job.Force {
		out, err = s.themes.Refresh(ctx, job.StoryID)
	} else {
		out, err = s.themes.AnalyzeAndUpdate(ctx, job.StoryID)
	}
	if err != nil {
		return err
	}
	if out.Changed {
		s.publish(ctx, eventstream.EventTypeThemeChanged, job.StoryID)
	}
	return nil
}

func (s *Service) synthesize(ctx context.Context, job Job) error {
	unlock := s.locks.Lock("synthesize:" + job.StoryID)
	defer unlock()

	m, err := s.synthesizer.Synthesize(ctx, job.StoryID)
	if err != nil {
		return err
	}
	if m != nil {
		s.publish(ctx, eventstream.EventTypeSynthesisUpdated, job.StoryID)
	}
	return nil
}

// publish sends a snapshot notification. Failures are logged; the stage's
// own work is already persisted.
func (s *Service) publish(ctx context.Context, eventType, storyID string) {
	snapshot, err := s.Snapshot(ctx, storyID)
	if err != nil {
		s.logger.Error("failed to build snapshot", "story_id", storyID, "event_type", eventType, "error", err)
		return
	}
	event := eventstream.NewStoryEvent(eventType, snapshot, s.now())
	if err := s.publisher.PublishStoryEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish story event", "story_id", storyID, "event_type", eventType, "error", err)
		return
	}
	s.logger.Debug("published story event", "story_id", storyID, "event_type", eventType, "event_id", event.EventID)
}
