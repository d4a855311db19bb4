// Package config loads pciassist configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	// APIKey authenticates against the Gemini API. Usually supplied via the
	// GOOGLE_API_KEY environment variable rather than the config file.
	APIKey string `yaml:"api_key"`

	// Model is the Gemini generation model.
	Model string `yaml:"model"`

	// KBPath is the knowledge base JSON file (requirement id -> text).
	KBPath string `yaml:"kb_path"`

	// IndexPath is the sqlite vector index database file.
	IndexPath string `yaml:"index_path"`

	// TopK is the number of vector hits requested per retrieval.
	TopK int `yaml:"top_k"`

	// RequestTimeout bounds a single generation call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Addr is the HTTP listen address for serve mode.
	Addr string `yaml:"addr"`

	Embedding EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider: "genai" or "ollama"
	Provider string `yaml:"provider"`

	GenAIModel string `yaml:"genai_model"`
	TaskType   string `yaml:"task_type"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:          "gemini-2.5-flash",
		KBPath:         "pci_data.json",
		IndexPath:      "pci_vectors.db",
		TopK:           5,
		RequestTimeout: 2 * time.Minute,
		Addr:           ":8080",
		Embedding: EmbeddingConfig{
			Provider:       "genai",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
		},
	}
}

// Load reads configuration from path (if non-empty and present) on top of
// defaults, then applies environment overrides. A missing explicit path is
// an error; a missing default path is not.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PCIASSIST_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PCIASSIST_KB"); v != "" {
		cfg.KBPath = v
	}
	if v := os.Getenv("PCIASSIST_INDEX"); v != "" {
		cfg.IndexPath = v
	}
	if v := os.Getenv("PCIASSIST_ADDR"); v != "" {
		cfg.Addr = v
	}
}
