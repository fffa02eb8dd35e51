package api

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/storyline/pkg/eventstream"
	"github.com/papercomputeco/storyline/pkg/sse"
)

// EventTypeSnapshot is the first event of every stream and carries the
// story's state at subscription time.
const EventTypeSnapshot = "storyline.snapshot"

// handleStoryEvents streams a story's events as SSE until the client goes
// away or the event source closes.
func (s *Server) handleStoryEvents(c *fiber.Ctx) error {
	if s.config.Events == nil {
		return fiber.NewError(fiber.StatusNotFound, "event streaming is disabled")
	}

	id := c.Params("id")
	snapshot, err := s.service.Snapshot(c.Context(), id)
	if err != nil {
		return err
	}
	first := eventstream.NewStoryEvent(EventTypeSnapshot, snapshot, time.Now())

	events, cancel := s.config.Events.Subscribe(id)
	keepAlive := s.config.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		enc := sse.NewEncoder(w)
		if err := s.writeEvent(enc, first); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := s.writeEvent(enc, event); err != nil {
					return
				}
			case <-ticker.C:
				if err := enc.Comment("keep-alive"); err != nil {
					s.logger.Debug("event stream client gone", "story_id", id, "error", err)
					return
				}
			}
		}
	})
	return nil
}

func (s *Server) writeEvent(enc *sse.Encoder, event *eventstream.StoryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encoding story event", "event_id", event.EventID, "error", err)
		return err
	}
	return enc.Encode(sse.Event{ID: event.EventID, Type: event.EventType, Data: string(data)})
}
