package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	googlegenai "google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*googlegenai.Content, config *googlegenai.GenerateContentConfig) (*googlegenai.GenerateContentResponse, error)
}

// GeminiClient wraps the Google Gemini models service.
type GeminiClient struct {
	models contentGenerator
	model  string
	debug  debugLogger
}

// NewGeminiClient initializes a client using the provided key or GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context, opts ...Option) (*GeminiClient, error) {
	cfg := buildOpts(DefaultGeminiModel, "GEMINI_API_KEY", opts)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	client, err := googlegenai.NewClient(ctx, &googlegenai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: googlegenai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	slog.Debug("GeminiClient initialized", "model", cfg.Model)
	return &GeminiClient{
		models: client.Models,
		model:  cfg.Model,
		debug:  debugLogger{enabled: cfg.DebugMode, stateDir: cfg.StateDir},
	}, nil
}

// Generate sends prompt as a single user content.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	config := &googlegenai.GenerateContentConfig{
		Temperature:     googlegenai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, googlegenai.Text(prompt), config)
	c.debug.log("GeminiClient.Generate", c.model, config, resp, err)
	if err != nil {
		slog.Error("GeminiClient.Generate: request failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoChoicesReturned
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			b.WriteString(part.Text)
		}
		// Only the first candidate with content is used.
		if b.Len() > 0 {
			break
		}
	}
	return b.String(), nil
}
