package providers

import (
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("explicit providers", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
			want string
		}{
			{"openrouter", Config{Provider: "openrouter", Model: "m", APIKey: "k"}, OpenRouterName},
			{"openai", Config{Provider: "openai", Model: "m", APIKey: "k"}, OpenAIName},
			{"ollama", Config{Provider: "ollama", Model: "m"}, OllamaName},
			{"mock", Config{Provider: "mock"}, MockClientName},
			{"case insensitive", Config{Provider: "OpenRouter", Model: "m", APIKey: "k"}, OpenRouterName},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, err := New(tt.cfg)
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				if client.Name() != tt.want {
					t.Errorf("Name() = %q, want %q", client.Name(), tt.want)
				}
			})
		}
	})

	t.Run("inference", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
			want string
		}{
			{"slash model with key is openrouter", Config{Model: "google/gemini-2.5-flash", APIKey: "k"}, OpenRouterName},
			{"slash model without key is ollama", Config{Model: "library/llama3"}, OllamaName},
			{"plain model is ollama", Config{Model: "llama3", APIKey: "k"}, OllamaName},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, err := New(tt.cfg)
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				if client.Name() != tt.want {
					t.Errorf("Name() = %q, want %q", client.Name(), tt.want)
				}
			})
		}
	})

	t.Run("missing API key rejected", func(t *testing.T) {
		if _, err := New(Config{Provider: "openrouter", Model: "m"}); err == nil {
			t.Error("expected error for openrouter without key")
		}
		if _, err := New(Config{Provider: "openai", Model: "m"}); err == nil {
			t.Error("expected error for openai without key")
		}
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		if _, err := New(Config{Provider: "watson"}); err == nil {
			t.Error("expected error")
		}
	})
}
