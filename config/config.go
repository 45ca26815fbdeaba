// Package config loads the YAML application configuration. Missing
// files and missing fields fall back to sensible defaults so a zero
// config still yields a runnable local setup.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider string              `yaml:"provider"`
	OpenAI   *OpenAIClientConfig `yaml:"openai,omitempty"`
}

// LLMConfig configures the chat completions gateway.
type LLMConfig struct {
	OpenAI *OpenAIClientConfig `yaml:"openai,omitempty"`
}

// OpenAIClientConfig holds connection details for an OpenAI-compatible
// endpoint. The API key itself is read from the named env variable,
// never from the config file.
type OpenAIClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// Dimension is only meaningful for embedders; the postgres index
	// needs it before the first call.
	Dimension int `yaml:"dimension,omitempty"`
}

// IndexConfig selects the vector index backend. Postgres connection
// details come from DB_* env variables, not from here.
type IndexConfig struct {
	Type string `yaml:"type"`
}

// PipelineConfig holds per-run defaults and run-history sizing.
type PipelineConfig struct {
	TopK             int  `yaml:"top_k"`
	IncludeGrounding bool `yaml:"include_grounding"`
	HistorySize      int  `yaml:"history_size"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	Index    IndexConfig    `yaml:"index"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Load reads a config from the given path. A missing file returns the
// defaults rather than an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present: local
// ONNX embeddings, an in-memory index and an OpenAI-compatible LLM.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Provider: "local"},
		Index:    IndexConfig{Type: "memory"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "local"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 5
	}
	if cfg.Pipeline.HistorySize == 0 {
		cfg.Pipeline.HistorySize = 100
	}
	if cfg.Embedder.Provider == "openai" && cfg.Embedder.OpenAI != nil {
		applyClientDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 30)
		if cfg.Embedder.OpenAI.Dimension == 0 {
			cfg.Embedder.OpenAI.Dimension = 1536
		}
	}
	if cfg.LLM.OpenAI != nil {
		applyClientDefaults(cfg.LLM.OpenAI, "gpt-4o-mini", 60)
	}
}

func applyClientDefaults(c *OpenAIClientConfig, model string, timeoutSecs int) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
}
