package enrich

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/embedding"
)

// GeminiConfig configures the Gemini enrichment client.
type GeminiConfig struct {
	APIKey      string
	Project     string
	Location    string
	Model       string
	Temperature float32
	MaxTokens   int32
}

// Gemini generates summaries and tags with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGemini creates a genai client for text generation.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := embedding.NewGenAIClient(ctx, cfg.APIKey, cfg.Project, cfg.Location)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Gemini{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: maxTokens,
		},
	}, nil
}

// Summarize asks the model for a short objective summary.
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	out, err := g.generate(ctx, fmt.Sprintf(summaryPrompt, text))
	if err != nil {
		return "", apperr.Dependency(err, "summarization failed")
	}
	return out, nil
}

// ExtractTags asks the model for comma-separated topics.
func (g *Gemini) ExtractTags(ctx context.Context, text string) ([]string, error) {
	out, err := g.generate(ctx, fmt.Sprintf(tagsPrompt, text))
	if err != nil {
		return nil, apperr.Dependency(err, "tag extraction failed")
	}
	return ParseTags(out), nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
