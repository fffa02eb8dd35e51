package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeJSON unmarshals a model response into v. It tolerates surrounding
// whitespace, markdown fences, and prose around a single top-level object.
func DecodeJSON(output string, v any) error {
	s := strings.TrimSpace(output)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	// Fast path: valid JSON as-is.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	// An opening brace with no closing brace means the output was truncated.
	if start != -1 && end == -1 {
		return io.ErrUnexpectedEOF
	}
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

// Generate runs req against g and decodes the result into T. When req.Schema
// is nil the schema is reflected from T.
func Generate[T any](ctx context.Context, g Generator, req Request) (T, error) {
	var out T
	if req.Schema == nil {
		req.Schema = SchemaFor[T]()
	}

	raw, err := g.GenerateJSON(ctx, req)
	if err != nil {
		return out, err
	}
	if err := DecodeJSON(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", req.Name, err)
	}
	return out, nil
}
