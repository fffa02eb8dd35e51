// Package provider resolves the configured text-generation backend.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/papercomputeco/storyline/pkg/llm"
	"github.com/papercomputeco/storyline/pkg/llm/provider/gemini"
	"github.com/papercomputeco/storyline/pkg/llm/provider/ollama"
	"github.com/papercomputeco/storyline/pkg/llm/provider/openai"
	"github.com/papercomputeco/storyline/pkg/logger"
)

const (
	OpenAI = "openai"
	Gemini = "gemini"
	Ollama = "ollama"
)

// Supported lists the provider names accepted by New.
var Supported = []string{OpenAI, Gemini, Ollama}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Logger   *slog.Logger
}

// Resolved is the provider actually selected after key resolution.
type Resolved struct {
	Provider string
	APIKey   string
}

// Resolve applies the key resolution order:
//  1. Explicit APIKey in config
//  2. Environment variables (OPENAI_API_KEY / GEMINI_API_KEY / GOOGLE_API_KEY)
//  3. Fall back to Ollama at localhost:11434
func Resolve(cfg Config) Resolved {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = OpenAI
	}

	key := cfg.APIKey
	if key == "" {
		key = apiKeyFromEnv(name)
	}
	if key == "" && name != Ollama {
		name = Ollama
	}
	return Resolved{Provider: name, APIKey: key}
}

// HasCredentials reports whether cfg resolves to its requested provider
// without falling back to Ollama.
func HasCredentials(cfg Config) bool {
	requested := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if requested == "" {
		requested = OpenAI
	}
	return Resolve(cfg).Provider == requested
}

// New creates the generator named by cfg.
func New(ctx context.Context, cfg Config) (llm.Generator, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	requested := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if requested != "" && !slices.Contains(Supported, requested) {
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: %s)", requested, strings.Join(Supported, ", "))
	}

	r := Resolve(cfg)
	if requested != "" && requested != r.Provider {
		log.Warn("no API key found, falling back to ollama", "provider", requested)
	}

	// A model configured for another provider means nothing to the fallback.
	model := cfg.Model
	if requested != "" && requested != r.Provider {
		model = ""
	}

	switch r.Provider {
	case OpenAI:
		return openai.New(r.APIKey, model, cfg.BaseURL), nil
	case Gemini:
		return gemini.New(ctx, r.APIKey, model)
	case Ollama:
		baseURL := cfg.BaseURL
		if requested != Ollama {
			baseURL = ""
		}
		return ollama.New(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: %s)", r.Provider, strings.Join(Supported, ", "))
	}
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case OpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case Gemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}
