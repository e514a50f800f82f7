// Package config provides configuration loading and structs for the memoro server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/enrich"
)

// Environment variables holding API keys. Keys never live in the YAML file.
const (
	EnvOpenRouterKey       = "OPENROUTER_API_KEY"
	EnvOpenRouterKeyLegacy = "OPEN_API_KEY"
	EnvGeminiKey           = "GEMINI_API_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Enrich    EnrichConfig    `yaml:"enrich"`
	Search    SearchConfig    `yaml:"search"`
	Inbox     InboxConfig     `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the note database and the keyword index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// GoogleConfig selects a Gemini model and, when no API key is set, a Vertex AI project.
type GoogleConfig struct {
	Model    string `yaml:"model"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
	APIKey   string `yaml:"-"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // onnx, gemini, mock, none
	Dimensions int    `yaml:"dimensions"`
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	// AutoEmbed embeds notes created without a vector through the API or CLI.
	AutoEmbed *bool `yaml:"auto_embed"`
	// BackfillSchedule is a cron expression for embedding notes stored without one. Empty disables it.
	BackfillSchedule string       `yaml:"backfill_schedule"`
	Gemini           GoogleConfig `yaml:"gemini"`
}

// AutoEmbedOrDefault returns whether to auto-embed; defaults to true when unset.
func (e *EmbeddingConfig) AutoEmbedOrDefault() bool {
	if e.AutoEmbed != nil {
		return *e.AutoEmbed
	}
	return true
}

// Options converts the section into embedder options.
func (e *EmbeddingConfig) Options() embedding.Options {
	return embedding.Options{
		Provider:   e.Provider,
		Dimensions: e.Dimensions,
		ModelPath:  e.ModelPath,
		MaxTokens:  e.MaxTokens,
		CacheSize:  e.CacheSize,
		Gemini: embedding.GeminiConfig{
			APIKey:     e.Gemini.APIKey,
			Project:    e.Gemini.Project,
			Location:   e.Gemini.Location,
			Model:      e.Gemini.Model,
			Dimensions: e.Dimensions,
		},
	}
}

// OpenRouterConfig holds OpenRouter model settings.
type OpenRouterConfig struct {
	BaseURL      string `yaml:"base_url"`
	SummaryModel string `yaml:"summary_model"`
	TagsModel    string `yaml:"tags_model"`
	APIKey       string `yaml:"-"`
}

// EnrichConfig holds summary and tag generation settings. Temperature is nil when unset, so an
// explicit 0 survives ApplyDefaults.
type EnrichConfig struct {
	Provider      string           `yaml:"provider"` // openrouter, gemini, none
	MaxInputChars int              `yaml:"max_input_chars"`
	OpenRouter    OpenRouterConfig `yaml:"openrouter"`
	Gemini        GoogleConfig     `yaml:"gemini"`
	Temperature   *float64         `yaml:"temperature"`
	MaxTokens     int              `yaml:"max_tokens"`
}

// TemperatureOrDefault returns the configured temperature, or the enricher default when unset.
func (e *EnrichConfig) TemperatureOrDefault() float64 {
	if e.Temperature != nil {
		return *e.Temperature
	}
	return enrich.DefaultTemperature
}

// Options converts the section into enricher options.
func (e *EnrichConfig) Options() enrich.Options {
	return enrich.Options{
		Provider:      e.Provider,
		MaxInputChars: e.MaxInputChars,
		OpenRouter: enrich.OpenRouterConfig{
			APIKey:       e.OpenRouter.APIKey,
			BaseURL:      e.OpenRouter.BaseURL,
			SummaryModel: e.OpenRouter.SummaryModel,
			TagsModel:    e.OpenRouter.TagsModel,
			Temperature:  e.TemperatureOrDefault(),
			MaxTokens:    e.MaxTokens,
		},
		Gemini: enrich.GeminiConfig{
			APIKey:      e.Gemini.APIKey,
			Project:     e.Gemini.Project,
			Location:    e.Gemini.Location,
			Model:       e.Gemini.Model,
			Temperature: float32(e.TemperatureOrDefault()),
			MaxTokens:   int32(e.MaxTokens),
		},
	}
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultTopK     int `yaml:"default_top_k"`
	DefaultKeywordK int `yaml:"default_keyword_limit"`
}

// InboxConfig holds the directories watched for files to capture.
type InboxConfig struct {
	Directories []string      `yaml:"directories"`
	Extensions  []string      `yaml:"extensions"`
	Debounce    time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and reads API keys
// from the environment (and a .env file next to the config, when present).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	if err := LoadEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	ApplyEnv(&cfg)
	return &cfg, nil
}

// LoadEnv loads variables from the given .env files into the process environment. Missing files are
// ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv copies API keys from the environment into cfg.
func ApplyEnv(cfg *Config) {
	key := os.Getenv(EnvOpenRouterKey)
	if key == "" {
		key = os.Getenv(EnvOpenRouterKeyLegacy)
	}
	cfg.Enrich.OpenRouter.APIKey = key
	gemini := os.Getenv(EnvGeminiKey)
	cfg.Enrich.Gemini.APIKey = gemini
	cfg.Embedding.Gemini.APIKey = gemini
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory. ":memory:" and "" are kept.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
