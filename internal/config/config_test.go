package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Extract.ChunkSize != 4000 {
		t.Errorf("chunk_size = %d, want 4000", cfg.Extract.ChunkSize)
	}
	if cfg.Extract.ChunkOverlap != 200 {
		t.Errorf("chunk_overlap = %d, want 200", cfg.Extract.ChunkOverlap)
	}
	if cfg.Extract.Workers != 10 {
		t.Errorf("workers = %d, want 10", cfg.Extract.Workers)
	}
	if cfg.Extract.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", cfg.Extract.Attempts)
	}
	if cfg.Extract.RetryBackoff != time.Second {
		t.Errorf("retry_backoff = %v, want 1s", cfg.Extract.RetryBackoff)
	}
	if cfg.Extract.FuzzyThreshold != 0.85 {
		t.Errorf("fuzzy_threshold = %v, want 0.85", cfg.Extract.FuzzyThreshold)
	}
	if cfg.Extract.ErrorMode != "collect" {
		t.Errorf("error_mode = %q, want collect", cfg.Extract.ErrorMode)
	}
	if cfg.Extract.Scheduler != "pool" {
		t.Errorf("scheduler = %q, want pool", cfg.Extract.Scheduler)
	}
	if cfg.Ollama.ContainerName != "textspot-ollama" {
		t.Errorf("container_name = %q", cfg.Ollama.ContainerName)
	}
	if cfg.Ollama.Port != "11434" {
		t.Errorf("port = %q", cfg.Ollama.Port)
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
provider:
  name: openrouter
  model: google/gemini-2.5-flash
  api_key: key-from-file
extract:
  chunk_size: 1500
  workers: 4
  dedupe: true
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		cfg, err := Load(viper.New(), path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Provider.Name != "openrouter" {
			t.Errorf("provider = %q", cfg.Provider.Name)
		}
		if cfg.Provider.Model != "google/gemini-2.5-flash" {
			t.Errorf("model = %q", cfg.Provider.Model)
		}
		if cfg.Extract.ChunkSize != 1500 {
			t.Errorf("chunk_size = %d, want 1500", cfg.Extract.ChunkSize)
		}
		if cfg.Extract.Workers != 4 {
			t.Errorf("workers = %d, want 4", cfg.Extract.Workers)
		}
		if !cfg.Extract.Dedupe {
			t.Error("dedupe not set")
		}
		// Unset values keep their defaults.
		if cfg.Extract.ChunkOverlap != 200 {
			t.Errorf("chunk_overlap = %d, want 200", cfg.Extract.ChunkOverlap)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		if _, err := Load(viper.New(), "/does/not/exist.yaml"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("provider: [not: a map"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := Load(viper.New(), path); err == nil {
			t.Error("expected error")
		}
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TEXTSPOT_EXTRACT_CHUNK_SIZE", "2500")
	t.Setenv("TEXTSPOT_PROVIDER_MODEL", "llama3")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Extract.ChunkSize != 2500 {
		t.Errorf("chunk_size = %d, want 2500", cfg.Extract.ChunkSize)
	}
	if cfg.Provider.Model != "llama3" {
		t.Errorf("model = %q, want llama3", cfg.Provider.Model)
	}
}
