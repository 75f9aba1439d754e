// Package llm builds the text-generation backend used for translation.
package llm

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"

	// DefaultOpenAIBaseURL is an OpenAI-compatible endpoint hosting the
	// default model.
	DefaultOpenAIBaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultModel         = "nvidia/llama-3.1-nemotron-70b-instruct"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	BaseURL string
	APIKey  string
	Model   string
}

// Injectable constructors for testing.
var (
	OpenAINew = openai.New
	OllamaNew = ollama.New
)

// New returns a langchaingo model for cfg. The handle is safe for concurrent
// use and is meant to be created once per process.
func New(cfg Config) (llms.Model, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	switch cfg.Backend {
	case BackendOpenAI, "":
		if cfg.APIKey == "" {
			return nil, errors.New("an API key is required for the openai backend")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		model, err := OpenAINew(
			openai.WithToken(cfg.APIKey),
			openai.WithBaseURL(baseURL),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return model, nil
	case BackendOllama:
		serverURL := cfg.BaseURL
		if serverURL == "" {
			serverURL = DefaultOllamaURL
		}
		model, err := OllamaNew(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(serverURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported LLM backend %q", cfg.Backend)
	}
}
