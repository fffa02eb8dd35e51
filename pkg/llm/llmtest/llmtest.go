// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/papercomputeco/storyline/pkg/llm"
)

// Responder answers one request.
type Responder func(req llm.Request) (string, error)

// Generator answers requests by schema name and records every call.
type Generator struct {
	mu         sync.Mutex
	responders map[string]Responder
	calls      []llm.Request
	model      string
}

var _ llm.Generator = (*Generator)(nil)

// New creates a Generator reporting model as its default model.
func New(model string) *Generator {
	return &Generator{responders: map[string]Responder{}, model: model}
}

// On registers the responder for a schema name.
func (g *Generator) On(name string, r Responder) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responders[name] = r
	return g
}

// Returns answers a schema name with v marshalled to JSON.
func (g *Generator) Returns(name string, v any) *Generator {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return g.On(name, func(llm.Request) (string, error) { return string(b), nil })
}

// Fails answers a schema name with err.
func (g *Generator) Fails(name string, err error) *Generator {
	return g.On(name, func(llm.Request) (string, error) { return "", err })
}

func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	r, ok := g.responders[req.Name]
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("llmtest: no responder for %q", req.Name)
	}
	return r(req)
}

func (g *Generator) Model() string {
	return g.model
}

// Calls returns the requests made so far, optionally filtered by schema name.
func (g *Generator) Calls(name string) []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []llm.Request
	for _, c := range g.calls {
		if name == "" || c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
