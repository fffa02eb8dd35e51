// Package api provides the HTTP trigger API for creating stories, posting
// contributions, and reading what the pipeline derived from them.
package api

import (
	"time"

	"github.com/papercomputeco/storyline/pkg/eventstream"
)

// DefaultKeepAlive is the interval between SSE keep-alive comments.
const DefaultKeepAlive = 15 * time.Second

// Subscriber hands out live story event feeds.
type Subscriber interface {
	Subscribe(storyID string) (<-chan *eventstream.StoryEvent, func())
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Events backs GET /v1/stories/:id/events. The route answers 404
	// when nil.
	Events Subscriber

	// KeepAlive defaults to DefaultKeepAlive.
	KeepAlive time.Duration
}
