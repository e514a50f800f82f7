package config

import (
	"time"

	"github.com/hyperjump/memoro/internal/embedding"
	"github.com/hyperjump/memoro/internal/enrich"
	"github.com/hyperjump/memoro/internal/extract"
	"github.com/hyperjump/memoro/internal/models"
)

// Default values applied by ApplyDefaults.
const (
	DefaultDatabasePath     = "/usr/local/var/memoro/data/memoro.db"
	DefaultKeywordIndexPath = "/usr/local/var/memoro/data/indices/bleve"
	DefaultModelPath        = "/usr/local/var/memoro/data/models/all-MiniLM-L6-v2.onnx"
	DefaultSummaryModel     = "meta-llama/llama-3.3-8b-instruct:free"
	DefaultTagsModel        = "nousresearch/deephermes-3-mistral-24b-preview:free"
	DefaultGeminiTextModel  = "gemini-2.5-flash"
	DefaultInboxDebounce    = 500 * time.Millisecond
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = DefaultKeywordIndexPath
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = embedding.DefaultDimensions
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = DefaultModelPath
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Enrich.Provider == "" {
		cfg.Enrich.Provider = "openrouter"
	}
	if cfg.Enrich.MaxInputChars == 0 {
		cfg.Enrich.MaxInputChars = 8000
	}
	if cfg.Enrich.Temperature == nil {
		t := enrich.DefaultTemperature
		cfg.Enrich.Temperature = &t
	}
	if cfg.Enrich.MaxTokens == 0 {
		cfg.Enrich.MaxTokens = 300
	}
	if cfg.Enrich.OpenRouter.SummaryModel == "" {
		cfg.Enrich.OpenRouter.SummaryModel = DefaultSummaryModel
	}
	if cfg.Enrich.OpenRouter.TagsModel == "" {
		cfg.Enrich.OpenRouter.TagsModel = DefaultTagsModel
	}
	if cfg.Enrich.Gemini.Model == "" {
		cfg.Enrich.Gemini.Model = DefaultGeminiTextModel
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = models.DefaultTopK
	}
	if cfg.Search.DefaultKeywordK == 0 {
		cfg.Search.DefaultKeywordK = models.DefaultKeywordLimit
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = extract.SupportedExtensions()
	}
	if cfg.Inbox.Debounce == 0 {
		cfg.Inbox.Debounce = DefaultInboxDebounce
	}
}
