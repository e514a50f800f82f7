// Package enrich derives summaries and tags for captured text using an LLM provider.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/models"
)

const (
	summaryPrompt = "Summarize the following text clearly and objectively:\n\n%s"
	tagsPrompt    = "Extract the main topics and tags from this text, separated by commas:\n\n%s"
)

// Enricher produces a summary and tags for a note body.
type Enricher interface {
	Summarize(ctx context.Context, text string) (string, error)
	ExtractTags(ctx context.Context, text string) ([]string, error)
}

// Options selects and configures the enrichment provider.
type Options struct {
	Provider string // openrouter, gemini, none
	// MaxInputChars caps the text sent to the provider; longer input is cut at a natural boundary.
	MaxInputChars int
	OpenRouter    OpenRouterConfig
	Gemini        GeminiConfig
}

// New builds the enricher named by opts.Provider.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Enricher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Enricher
		err error
	)
	switch opts.Provider {
	case "openrouter":
		e, err = NewOpenRouter(opts.OpenRouter)
	case "gemini":
		e, err = NewGemini(ctx, opts.Gemini)
	case "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown enrichment provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("enrichment provider ready", zap.String("provider", opts.Provider))
	if opts.MaxInputChars > 0 {
		e = &truncating{next: e, max: opts.MaxInputChars}
	}
	return e, nil
}

// ParseTags splits a comma-separated model reply into trimmed, non-empty tags.
func ParseTags(reply string) []string {
	return models.NormalizeTags([]string{reply})
}

// Disabled returns an empty summary and no tags.
type Disabled struct{}

func (Disabled) Summarize(context.Context, string) (string, error) { return "", nil }

func (Disabled) ExtractTags(context.Context, string) ([]string, error) { return []string{}, nil }

// truncating limits the input passed to the wrapped enricher.
type truncating struct {
	next Enricher
	max  int
}

func (t *truncating) Summarize(ctx context.Context, text string) (string, error) {
	return t.next.Summarize(ctx, Truncate(text, t.max))
}

func (t *truncating) ExtractTags(ctx context.Context, text string) ([]string, error) {
	return t.next.ExtractTags(ctx, Truncate(text, t.max))
}

// Truncate returns the leading part of text no longer than maxChars characters, split at
// paragraph or sentence boundaries where possible.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChars),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil || len(chunks) == 0 || utf8.RuneCountInString(chunks[0]) > maxChars {
		return hardCut(text, maxChars)
	}
	return chunks[0]
}

// hardCut keeps the first maxChars runes of text.
func hardCut(text string, maxChars int) string {
	n := 0
	for i := range text {
		if n == maxChars {
			return strings.TrimSpace(text[:i])
		}
		n++
	}
	return strings.TrimSpace(text)
}
