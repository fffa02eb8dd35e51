// Package gemini implements llm.Generator on Google's Gemini API in JSON mode.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/papercomputeco/storyline/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash-latest"

// Generator calls Gemini's GenerateContent with a JSON response MIME type.
type Generator struct {
	client *genai.Client
	model  string
}

// New creates a Generator. Close releases the underlying client.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

func (g *Generator) Model() string {
	return g.model
}

// Close releases the client.
func (g *Generator) Close() error {
	return g.client.Close()
}

// GenerateJSON asks for application/json output and embeds the schema in the
// system instruction.
func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	model := g.client.GenerativeModel(llm.ModelFor(g, req))

	instructions, err := systemInstruction(req)
	if err != nil {
		return "", err
	}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instructions)},
	}
	model.ResponseMIMEType = "application/json"
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyOutput
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", llm.ErrEmptyOutput
	}
	return out.String(), nil
}

func systemInstruction(req llm.Request) (string, error) {
	if req.Schema == nil {
		return req.Instructions, nil
	}
	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal schema: %w", err)
	}
	return req.Instructions + "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(schema), nil
}
