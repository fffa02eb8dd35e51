// Package ingestcmder provides the ingest command, which loads contributions
// from JSON files and optionally watches directories for new ones.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/cmd/storyline/report"
	"github.com/papercomputeco/storyline/pkg/cliui"
	"github.com/papercomputeco/storyline/pkg/config"
	"github.com/papercomputeco/storyline/pkg/pipeline"
)

const ingestLongDesc string = `Load contributions from JSON files.

Each path is a .json file or a directory of them. A file holds one
contribution object or an array of them:

  [{"author_name": "Ana", "body": "We landed in Paris at dawn.",
    "occurred_at": "2024-06-01T06:10:00Z", "location": "CDG"}]

Contributions are processed by the background workers; the command waits
for the pipeline to settle before printing the story's progress. With
--watch, directories keep being watched for new files until interrupted.

Examples:
  storyline ingest <story-id> memories.json
  storyline ingest <story-id> ./inbox --watch`

const ingestShortDesc string = "Load contributions from JSON files"

var ingestFlags = append(slices.Clone(bootstrap.PipelineFlags), config.FlagWorkers)

type ingestCommander struct {
	watch bool

	out    io.Writer
	rt     *bootstrap.Runtime
	logger *slog.Logger
	seen   map[string]bool
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <story-id> <path>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0], args[1:])
		},
	}

	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Keep watching directories for new files")
	bootstrap.AddFlags(cmd, ingestFlags...)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command, storyID string, paths []string) error {
	cfg, err := bootstrap.LoadConfig(cmd, ingestFlags...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c.out = cmd.OutOrStdout()
	c.logger = bootstrap.NewLogger(cfg, cmd.ErrOrStderr())
	c.seen = make(map[string]bool)

	c.rt, err = bootstrap.Open(ctx, cfg, c.logger, bootstrap.Options{Async: true})
	if err != nil {
		return err
	}
	defer c.rt.Close()

	st, err := c.rt.Store.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	report.PrintStory(c.out, st)

	var dirs []string
	for _, path := range paths {
		files, isDir, err := jsonFiles(path)
		if err != nil {
			return err
		}
		if isDir {
			dirs = append(dirs, path)
		}
		for _, file := range files {
			if err := c.ingestFile(ctx, storyID, file); err != nil {
				return err
			}
		}
	}

	if c.watch && len(dirs) > 0 {
		if err := c.watchDirs(ctx, storyID, dirs); err != nil && ctx.Err() == nil {
			return err
		}
	}

	c.rt.Service.Drain()

	stats, err := c.rt.Service.ProcessingStats(context.WithoutCancel(ctx), storyID)
	if err != nil {
		return err
	}
	report.PrintStats(c.out, stats)
	return nil
}

// ingestFile stores every contribution in path and queues its processing.
// Each file is ingested at most once per run.
func (c *ingestCommander) ingestFile(ctx context.Context, storyID, path string) error {
	if c.seen[path] {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.seen[path] = true

	var stored int
	for i, entry := range entries {
		contribution, err := entry.Contribution(storyID)
		if err != nil {
			c.logger.Warn("skipping entry", "file", path, "index", i, "error", err)
			continue
		}
		err = c.rt.Service.AddContribution(ctx, contribution)
		switch {
		case err == nil:
			stored++
		case errors.Is(err, pipeline.ErrProcessing):
			stored++
			c.logger.Warn("contribution stored but not queued", "contribution_id", contribution.ID, "error", err)
		default:
			return fmt.Errorf("ingesting %s entry %d: %w", path, i, err)
		}
	}

	fmt.Fprintf(c.out, "  %s %s %s\n",
		cliui.Mark(nil),
		cliui.ValueStyle.Render(filepath.Base(path)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d of %d contributions)", stored, len(entries))),
	)
	return nil
}

// watchDirs ingests .json files created or written in dirs until ctx ends.
// A file that fails to parse is retried on its next write.
func (c *ingestCommander) watchDirs(ctx context.Context, storyID string, dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Watching for new files. Press Ctrl+C to stop."))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isJSON(event.Name) {
				continue
			}
			if err := c.ingestFile(ctx, storyID, filepath.Clean(event.Name)); err != nil {
				c.logger.Warn("ingest failed", "file", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// jsonFiles lists the .json files at path in name order. A regular file is
// returned as is.
func jsonFiles(path string) ([]string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return []string{filepath.Clean(path)}, false, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, true, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isJSON(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, true, nil
}

func isJSON(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
