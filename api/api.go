package api

import (
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/storyline/pkg/logger"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/storage"
)

// Server is the API server for the storyline pipeline.
type Server struct {
	config  Config
	service *pipeline.Service
	store   storage.Driver
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. Writes go through service so they
// trigger the pipeline; reads come straight from store.
func NewServer(config Config, service *pipeline.Service, store storage.Driver, l *slog.Logger) *Server {
	s := &Server{
		config:  config,
		service: service,
		store:   store,
		logger:  logger.Component(l, "api"),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app = app

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/stories", s.handleListStories)
	v1.Post("/stories", s.handleCreateStory)
	v1.Get("/stories/:id", s.handleGetStory)
	v1.Get("/stories/:id/contributions", s.handleListContributions)
	v1.Post("/stories/:id/contributions", s.handleCreateContribution)
	v1.Post("/stories/:id/reanalyze", s.handleReanalyzePending)
	v1.Get("/stories/:id/entities", s.handleListEntities)
	v1.Get("/stories/:id/theme", s.handleGetTheme)
	v1.Post("/stories/:id/theme/refresh", s.handleRefreshTheme)
	v1.Get("/stories/:id/synthesis", s.handleGetSynthesis)
	v1.Get("/stories/:id/synthesis/revisions", s.handleListRevisions)
	v1.Post("/stories/:id/synthesis/regenerate", s.handleRegenerateSynthesis)
	v1.Get("/stories/:id/stats", s.handleStats)
	v1.Get("/stories/:id/snapshot", s.handleSnapshot)
	v1.Get("/stories/:id/events", s.handleStoryEvents)
	v1.Get("/stories/:id/search", s.handleSearch)
	v1.Get("/contributions/:id", s.handleGetContribution)
	v1.Post("/contributions/:id/reanalyze", s.handleReanalyze)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve runs the API server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting API server", "listen", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
