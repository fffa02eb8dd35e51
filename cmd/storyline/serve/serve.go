// Package servecmder provides the serve command that runs the trigger API
// in front of the background pipeline.
package servecmder

import (
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/storyline/api"
	"github.com/papercomputeco/storyline/cmd/storyline/bootstrap"
	"github.com/papercomputeco/storyline/pkg/config"
)

const serveLongDesc string = `Run the Storyline API server and background pipeline.

Contributions posted to the API are stored immediately and processed by a
pool of workers: classification, entity extraction, theme analysis and
narrative synthesis run in the background with bounded retries. Story
events are published to Kafka when brokers are configured and streamed to
API clients over SSE at /v1/stories/<id>/events.

Examples:
  storyline serve
  storyline serve --listen :9000 --workers 8
  storyline serve --storage postgres --dsn postgres://localhost/storyline`

const serveShortDesc string = "Run the Storyline API server"

var serveFlags = append(slices.Clone(bootstrap.PipelineFlags),
	config.FlagListen,
	config.FlagWorkers,
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	bootstrap.AddFlags(cmd, serveFlags...)

	return cmd
}

func run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd, serveFlags...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := bootstrap.NewLogger(cfg, cmd.ErrOrStderr())

	rt, err := bootstrap.Open(ctx, cfg, l, bootstrap.Options{Async: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	server := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Events:     rt.Broker,
	}, rt.Service, rt.Store, l)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		l.Info("received signal, shutting down")

		// Open event streams only end when their feed closes.
		_ = rt.Broker.Close()
		if err := server.Shutdown(); err != nil {
			l.Error("shutting down API server", "error", err)
		}
		return nil
	}
}
