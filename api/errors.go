package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/storyline/pkg/pipeline"
	"github.com/papercomputeco/storyline/pkg/recall"
	"github.com/papercomputeco/storyline/pkg/storage"
	"github.com/papercomputeco/storyline/pkg/story"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errMissingAuthor = errors.New("author_name is required")

// handleError maps domain errors onto HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status, message = fe.Code, fe.Message
	case storage.IsNotFound(err):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, pipeline.ErrMissingTitle),
		errors.Is(err, story.ErrEmptyBody),
		errors.Is(err, errMissingAuthor),
		errors.Is(err, recall.ErrEmptyQuery):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, pipeline.ErrSearchDisabled):
		status, message = fiber.StatusNotImplemented, err.Error()
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrPoolClosed):
		status, message = fiber.StatusServiceUnavailable, err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(status).JSON(ErrorResponse{Error: message})
}
