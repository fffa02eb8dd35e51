// Package llm is the text-generation capability used by the pipeline stages.
// Every call asks a model for a JSON object matching a schema; providers live
// under pkg/llm/provider.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyOutput is returned when a provider answers with no text.
var ErrEmptyOutput = errors.New("model returned empty output")

// Request is a single structured-output generation call.
type Request struct {
	// Name identifies the output schema (e.g. "memory_analysis").
	Name string

	// Description is a short human description of the schema.
	Description string

	// Instructions is the system prompt.
	Instructions string

	// Prompt is the user message.
	Prompt string

	// Schema is the JSON schema the output must satisfy.
	Schema map[string]any

	// Model overrides the generator's default model when set.
	Model string

	// Temperature is passed through when set.
	Temperature *float64
}

// Generator produces a JSON document for a Request.
type Generator interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)

	// Model is the model identifier used when a Request doesn't set one.
	Model() string
}

// GeneratorFunc adapts a function to a Generator.
type GeneratorFunc struct {
	Fn        func(ctx context.Context, req Request) (string, error)
	ModelName string
}

func (f GeneratorFunc) GenerateJSON(ctx context.Context, req Request) (string, error) {
	return f.Fn(ctx, req)
}

func (f GeneratorFunc) Model() string {
	return f.ModelName
}

// Temperature returns a pointer to t for Request.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// ModelFor returns the model a request will run on.
func ModelFor(g Generator, req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return g.Model()
}
