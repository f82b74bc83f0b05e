package enrichment

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	maxPromptPageCharacters = 6000
	summaryPromptTemplate   = "Summarize the following web page in at most two sentences (under %d characters). " +
		"Reply with the summary text only.\n\nTitle: %s\n\nContent:\n%s"
)

// TextGenerator produces model output for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a client from the environment (GEMINI_API_KEY,
// or GOOGLE_GENAI_USE_VERTEXAI with project and location).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}
	return response.Text(), nil
}

// GeminiSummarizer asks a language model for the summary and falls back to
// another Summarizer when the model fails or returns nothing.
type GeminiSummarizer struct {
	generator TextGenerator
	fallback  Summarizer
	logger    *zap.Logger
}

// NewGeminiSummarizer wraps generator. A nil fallback selects HeuristicSummarizer.
func NewGeminiSummarizer(generator TextGenerator, fallback Summarizer, logger *zap.Logger) *GeminiSummarizer {
	if fallback == nil {
		fallback = NewHeuristicSummarizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiSummarizer{generator: generator, fallback: fallback, logger: logger}
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, document *goquery.Document) string {
	if s.generator == nil || document == nil {
		return s.fallback.Summarize(ctx, document)
	}
	content := pageText(document)
	if content == "" {
		return s.fallback.Summarize(ctx, document)
	}

	title := strings.TrimSpace(document.Find("title").First().Text())
	prompt := fmt.Sprintf(summaryPromptTemplate, maxSummaryCharacters, title, content)
	generated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("model summary failed", zap.Error(err))
		return s.fallback.Summarize(ctx, document)
	}
	generated = strings.TrimSpace(generated)
	if generated == "" {
		return s.fallback.Summarize(ctx, document)
	}
	return truncateSummary(generated)
}

func pageText(document *goquery.Document) string {
	body := document.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")
	if utf8.RuneCountInString(text) > maxPromptPageCharacters {
		text = string([]rune(text)[:maxPromptPageCharacters])
	}
	return text
}
