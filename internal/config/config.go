// Package config loads textspot configuration from file, environment, and
// defaults via viper. CLI flags are bound on top by the command layer.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface consumed by the core.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
}

// ProviderConfig selects and configures the model provider.
type ProviderConfig struct {
	// Name is "openrouter", "openai", "ollama", or "mock"; empty infers
	// from the model name and credentials.
	Name        string        `mapstructure:"name"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RPM         int           `mapstructure:"rpm"`
	Temperature float64       `mapstructure:"temperature"`
}

// ExtractConfig tunes the pipeline.
type ExtractConfig struct {
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	Workers        int           `mapstructure:"workers"`
	Attempts       int           `mapstructure:"attempts"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	FuzzyThreshold float64       `mapstructure:"fuzzy_threshold"`
	Dedupe         bool          `mapstructure:"dedupe"`
	ErrorMode      string        `mapstructure:"error_mode"` // collect | raise
	Scheduler      string        `mapstructure:"scheduler"`  // pool | fanout
	MaxExamples    int           `mapstructure:"max_examples"`
}

// OllamaConfig configures the local Ollama container runtime.
type OllamaConfig struct {
	ContainerName string `mapstructure:"container_name"`
	Image         string `mapstructure:"image"`
	Port          string `mapstructure:"port"`
	DataPath      string `mapstructure:"data_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Timeout:     120 * time.Second,
			Temperature: 0,
		},
		Extract: ExtractConfig{
			ChunkSize:      4000,
			ChunkOverlap:   200,
			Workers:        10,
			Attempts:       2,
			RetryBackoff:   time.Second,
			FuzzyThreshold: 0.85,
			ErrorMode:      "collect",
			Scheduler:      "pool",
		},
		Ollama: OllamaConfig{
			ContainerName: "textspot-ollama",
			Image:         "ollama/ollama:latest",
			Port:          "11434",
		},
	}
}

// Load reads configuration from the given file (optional), the environment
// (TEXTSPOT_ prefix), and defaults, in increasing precedence of env over
// file over defaults.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	defaults := Default()
	v.SetDefault("provider.name", defaults.Provider.Name)
	v.SetDefault("provider.model", defaults.Provider.Model)
	v.SetDefault("provider.api_key", defaults.Provider.APIKey)
	v.SetDefault("provider.base_url", defaults.Provider.BaseURL)
	v.SetDefault("provider.timeout", defaults.Provider.Timeout)
	v.SetDefault("provider.rpm", defaults.Provider.RPM)
	v.SetDefault("provider.temperature", defaults.Provider.Temperature)
	v.SetDefault("extract.chunk_size", defaults.Extract.ChunkSize)
	v.SetDefault("extract.chunk_overlap", defaults.Extract.ChunkOverlap)
	v.SetDefault("extract.workers", defaults.Extract.Workers)
	v.SetDefault("extract.attempts", defaults.Extract.Attempts)
	v.SetDefault("extract.retry_backoff", defaults.Extract.RetryBackoff)
	v.SetDefault("extract.fuzzy_threshold", defaults.Extract.FuzzyThreshold)
	v.SetDefault("extract.dedupe", defaults.Extract.Dedupe)
	v.SetDefault("extract.error_mode", defaults.Extract.ErrorMode)
	v.SetDefault("extract.scheduler", defaults.Extract.Scheduler)
	v.SetDefault("extract.max_examples", defaults.Extract.MaxExamples)
	v.SetDefault("ollama.container_name", defaults.Ollama.ContainerName)
	v.SetDefault("ollama.image", defaults.Ollama.Image)
	v.SetDefault("ollama.port", defaults.Ollama.Port)
	v.SetDefault("ollama.data_path", defaults.Ollama.DataPath)

	v.SetEnvPrefix("TEXTSPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.textspot")
	}

	// The config file is optional unless named explicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
