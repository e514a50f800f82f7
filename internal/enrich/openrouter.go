package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hyperjump/memoro/internal/apperr"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultTemperature is the sampling temperature configs start from. Zero is a valid setting.
const DefaultTemperature = 0.7

// OpenRouterConfig configures the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	SummaryModel string
	TagsModel    string
	Temperature  float64
	MaxTokens    int
}

// OpenRouter calls chat models through OpenRouter, one model for summaries and one for tags.
type OpenRouter struct {
	summary     llms.Model
	tags        llms.Model
	temperature float64
	maxTokens   int
}

// NewOpenRouter creates OpenAI-compatible clients pointed at OpenRouter.
func NewOpenRouter(cfg OpenRouterConfig) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	summary, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.SummaryModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary client: %w", err)
	}
	tags, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.TagsModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tags client: %w", err)
	}
	return NewOpenRouterWithModels(summary, tags, cfg.Temperature, cfg.MaxTokens), nil
}

// NewOpenRouterWithModels wires already constructed models.
func NewOpenRouterWithModels(summary, tags llms.Model, temperature float64, maxTokens int) *OpenRouter {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &OpenRouter{summary: summary, tags: tags, temperature: temperature, maxTokens: maxTokens}
}

// Summarize asks the summary model for a short objective summary.
func (o *OpenRouter) Summarize(ctx context.Context, text string) (string, error) {
	out, err := o.generate(ctx, o.summary, fmt.Sprintf(summaryPrompt, text))
	if err != nil {
		return "", apperr.Dependency(err, "summarization failed")
	}
	return out, nil
}

// ExtractTags asks the tags model for comma-separated topics.
func (o *OpenRouter) ExtractTags(ctx context.Context, text string) ([]string, error) {
	out, err := o.generate(ctx, o.tags, fmt.Sprintf(tagsPrompt, text))
	if err != nil {
		return nil, apperr.Dependency(err, "tag extraction failed")
	}
	return ParseTags(out), nil
}

func (o *OpenRouter) generate(ctx context.Context, model llms.Model, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithTemperature(o.temperature),
		llms.WithMaxTokens(o.maxTokens),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
