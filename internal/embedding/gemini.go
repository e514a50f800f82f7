package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini embedding client. APIKey selects the Gemini API
// backend; otherwise Project and Location select Vertex AI.
type GeminiConfig struct {
	APIKey     string
	Project    string
	Location   string
	Model      string
	Dimensions int
}

// GeminiEmbedder requests embeddings from the Gemini embedding model.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a genai client for embeddings.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	client, err := NewGenAIClient(ctx, cfg.APIKey, cfg.Project, cfg.Location)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dims}, nil
}

// NewGenAIClient builds a genai client for the Gemini API or Vertex AI.
func NewGenAIClient(ctx context.Context, apiKey, project, location string) (*genai.Client, error) {
	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if apiKey == "" {
		if project == "" {
			return nil, fmt.Errorf("gemini requires an API key or a project")
		}
		if location == "" {
			location = "us-central1"
		}
		cc = &genai.ClientConfig{Project: project, Location: location, Backend: genai.BackendVertexAI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// Embed returns the normalized embedding for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(e.dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response from gemini")
	}
	vec := append([]float32(nil), resp.Embeddings[0].Values...)
	NormalizeL2Slice(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the requested output dimensionality.
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op; the genai client holds no resources that need releasing.
func (e *GeminiEmbedder) Close() error { return nil }
