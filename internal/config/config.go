// Package config loads the YAML configuration file and applies
// environment overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AIConfig struct {
	Provider         string  `yaml:"provider"` // openai|gemini|ollama|mock
	Model            string  `yaml:"model"`
	OpenAIKey        string  `yaml:"openai_key"`
	GeminiKey        string  `yaml:"gemini_key"`
	OllamaHost       string  `yaml:"ollama_host"`
	Temperature      float64 `yaml:"temperature"`
	MaxContextTokens int     `yaml:"max_context_tokens"` // transcript trimming budget, 0 = unlimited
	ConcurrentLimit  int     `yaml:"concurrent_limit"`   // max concurrent AI calls
}

type TranscriptConfig struct {
	Languages []string `yaml:"languages"` // preference order
}

type AdminConfig struct {
	Port int `yaml:"port"` // 0 disables the metrics listener
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	AI         AIConfig         `yaml:"ai"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Admin      AdminConfig      `yaml:"admin"`
	Language   string           `yaml:"language"` // ui language for hints: ko|en

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (a missing file is fine:
// defaults plus environment are enough for the CLIs) and fills
// credentials from OPENAI_API_KEY / GEMINI_API_KEY / OLLAMA_HOST when
// the file leaves them empty.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// env overrides for secrets
	if cfg.AI.OpenAIKey == "" {
		cfg.AI.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.AI.GeminiKey == "" {
		cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.OllamaHost == "" {
		cfg.AI.OllamaHost = os.Getenv("OLLAMA_HOST")
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-5-mini"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.2
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if len(cfg.Transcript.Languages) == 0 {
		cfg.Transcript.Languages = []string{"ko", "en", "ja"}
	}
	if cfg.Language == "" {
		cfg.Language = "ko"
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
