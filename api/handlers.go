package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/storyline/pkg/entities"
	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

// CreateStoryRequest is the body of POST /v1/stories.
type CreateStoryRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`

	// ThemingEnabled defaults to true when omitted.
	ThemingEnabled *bool `json:"theming_enabled"`
}

// CreateContributionRequest is the body of POST /v1/stories/:id/contributions.
type CreateContributionRequest struct {
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Location   string     `json:"location"`
	OccurredAt *time.Time `json:"occurred_at"`
	ParentID   *string    `json:"parent_id"`
}

// EntitiesResponse lists a story's entities per kind, most mentioned first.
type EntitiesResponse struct {
	People []entities.Stats `json:"people"`
	Places []entities.Stats `json:"places"`
	Things []entities.Stats `json:"things"`
}

// StatsResponse is the body of GET /v1/stories/:id/stats.
type StatsResponse struct {
	Stats        pipeline.Stats         `json:"stats"`
	MemoryTypes  map[string]int         `json:"memory_types"`
	Contributors []pipeline.Contributor `json:"contributors"`
}

// AcceptedResponse acknowledges a triggered pipeline run.
type AcceptedResponse struct {
	Status    string `json:"status"`
	Triggered int    `json:"triggered,omitempty"`
}

var accepted = AcceptedResponse{Status: "accepted"}

const maxSearchLimit = 50

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleListStories(c *fiber.Ctx) error {
	list, err := s.store.ListStories(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) handleCreateStory(c *fiber.Ctx) error {
	var req CreateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	st := &story.Story{
		Title:          req.Title,
		Description:    strings.TrimSpace(req.Description),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ThemingEnabled: req.ThemingEnabled == nil || *req.ThemingEnabled,
	}
	if err := s.service.CreateStory(c.Context(), st); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

func (s *Server) handleGetStory(c *fiber.Ctx) error {
	st, err := s.store.GetStory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) handleListContributions(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	filter := storage.ContributionFilter{}
	switch w := story.Worthiness(c.Query("worthiness")); w {
	case "":
	case story.Worthy, story.NotWorthy, story.Unanalyzed:
		filter.Worthiness = w
	default:
		return fiber.NewError(fiber.StatusBadRequest, "worthiness must be worthy, not_worthy or unanalyzed")
	}

	if _, err := s.store.GetStory(ctx, id); err != nil {
		return err
	}
	list, err := s.store.ListContributions(ctx, id, filter)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) handleCreateContribution(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var req CreateContributionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.AuthorName) == "" {
		return errMissingAuthor
	}

	if _, err := s.store.GetStory(ctx, id); err != nil {
		return err
	}

	contribution, err := story.NewContribution(id, req.AuthorName, req.Body)
	if err != nil {
		return err
	}
	contribution.AuthorID = req.AuthorID
	contribution.Subject = strings.TrimSpace(req.Subject)
	contribution.Location = strings.TrimSpace(req.Location)
	contribution.OccurredAt = req.OccurredAt
	contribution.ParentID = req.ParentID

	err = s.service.AddContribution(ctx, contribution)
	switch {
	case errors.Is(err, pipeline.ErrProcessing):
		s.logger.Warn("contribution stored but not processed",
			"contribution_id", contribution.ID,
			"error", err,
		)
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(contribution)
}

func (s *Server) handleGetContribution(c *fiber.Ctx) error {
	contribution, err := s.store.GetContribution(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(contribution)
}

func (s *Server) handleReanalyze(c *fiber.Ctx) error {
	if err := s.service.Reanalyze(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleReanalyzePending(c *fiber.Ctx) error {
	n, err := s.service.ReanalyzePending(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(AcceptedResponse{Status: "accepted", Triggered: n})
}

func (s *Server) handleListEntities(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	if _, err := s.store.GetStory(ctx, id); err != nil {
		return err
	}
	list, err := s.store.ListEntities(ctx, id)
	if err != nil {
		return err
	}

	grouped := entities.GroupByKind(list)
	return c.JSON(EntitiesResponse{
		People: entities.SummarizeAll(grouped.People),
		Places: entities.SummarizeAll(grouped.Places),
		Things: entities.SummarizeAll(grouped.Things),
	})
}

func (s *Server) handleGetTheme(c *fiber.Ctx) error {
	data, err := s.service.CurrentTheme(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if data == nil {
		return fiber.NewError(fiber.StatusNotFound, "story has no theme yet")
	}
	return c.JSON(data)
}

func (s *Server) handleRefreshTheme(c *fiber.Ctx) error {
	if err := s.service.RefreshTheme(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleGetSynthesis(c *fiber.Ctx) error {
	view, err := s.service.LatestSynthesis(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if view == nil {
		return fiber.NewError(fiber.StatusNotFound, "story has no synthesized memory yet")
	}
	return c.JSON(view)
}

func (s *Server) handleListRevisions(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	if _, err := s.store.GetStory(ctx, id); err != nil {
		return err
	}
	revisions, err := s.store.ListRevisions(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(revisions)
}

func (s *Server) handleRegenerateSynthesis(c *fiber.Ctx) error {
	if err := s.service.RegenerateSynthesis(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	if _, err := s.store.GetStory(ctx, id); err != nil {
		return err
	}
	stats, err := s.service.ProcessingStats(ctx, id)
	if err != nil {
		return err
	}
	types, err := s.service.MemoryTypesDistribution(ctx, id)
	if err != nil {
		return err
	}
	contributors, err := s.service.MemoryContributors(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(StatsResponse{Stats: stats, MemoryTypes: types, Contributors: contributors})
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > maxSearchLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 0 and 50")
	}

	matches, err := s.service.Search(c.Context(), c.Params("id"), c.Query("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(matches)
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	snapshot, err := s.service.Snapshot(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(snapshot)
}
