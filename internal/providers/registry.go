package providers

import (
	"fmt"
	"strings"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	// Provider names the implementation: "openrouter", "openai", "ollama",
	// or "mock". Empty means infer from the model name and credentials.
	Provider string

	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	RPM     int
}

// New builds a Client from config. When Provider is empty, a model name
// containing "/" together with an API key selects OpenRouter; otherwise a
// local Ollama server is assumed.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		if strings.Contains(cfg.Model, "/") && cfg.APIKey != "" {
			provider = OpenRouterName
		} else {
			provider = OllamaName
		}
	}

	switch provider {
	case OpenRouterName:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key required for the %s provider", OpenRouterName)
		}
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			RPM:     cfg.RPM,
		}), nil
	case OpenAIName:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key required for the %s provider", OpenAIName)
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			RPM:     cfg.RPM,
		}), nil
	case OllamaName:
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			RPM:     cfg.RPM,
		}), nil
	case MockClientName:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: openrouter, openai, ollama, mock)", cfg.Provider)
	}
}
