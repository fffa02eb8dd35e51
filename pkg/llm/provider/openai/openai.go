// Package openai implements llm.Generator on the OpenAI Responses API with
// strict json_schema structured output.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/papercomputeco/storyline/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5-mini"

// Generator calls the OpenAI Responses API.
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a Generator. An empty baseURL targets api.openai.com. Retries
// are disabled in the SDK; llm.WithResilience owns retry policy.
func New(apiKey, model, baseURL string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &Generator{client: &client, model: model}
}

func (g *Generator) Model() string {
	return g.model
}

// GenerateJSON sends req as a single user message with a strict schema.
func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if g.client == nil {
		return "", errors.New("openai: client is nil")
	}
	if req.Schema == nil {
		return "", fmt.Errorf("openai: %s: schema is required", req.Name)
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        req.Name,
			Schema:      req.Schema,
			Strict:      openai.Bool(true),
			Description: openai.String(req.Description),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:        llm.ModelFor(g, req),
		Instructions: openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{Provider: "openai", Code: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("openai: %w", err)
	}

	out := resp.OutputText()
	if out == "" {
		return "", llm.ErrEmptyOutput
	}
	return out, nil
}
