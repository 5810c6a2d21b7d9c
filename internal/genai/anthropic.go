package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

type messageService interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicopt.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient wraps the Anthropic messages service.
type AnthropicClient struct {
	messages messageService
	model    string
	debug    debugLogger
}

// NewAnthropicClient initializes a client using the provided key or ANTHROPIC_API_KEY.
func NewAnthropicClient(opts ...Option) (*AnthropicClient, error) {
	cfg := buildOpts(DefaultAnthropicModel, "ANTHROPIC_API_KEY", opts)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	client := anthropic.NewClient(anthropicopt.WithAPIKey(cfg.APIKey))
	slog.Debug("AnthropicClient initialized", "model", cfg.Model)
	return &AnthropicClient{
		messages: &client.Messages,
		model:    cfg.Model,
		debug:    debugLogger{enabled: cfg.DebugMode, stateDir: cfg.StateDir},
	}, nil
}

// Generate sends prompt as a single user message.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(temperature),
	}
	msg, err := c.messages.New(ctx, params)
	c.debug.log("AnthropicClient.Generate", c.model, params, msg, err)
	if err != nil {
		slog.Error("AnthropicClient.Generate: request failed", "error", err)
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	if msg == nil || len(msg.Content) == 0 {
		return "", ErrNoChoicesReturned
	}
	var b strings.Builder
	for _, block := range msg.Content {
		b.WriteString(block.Text)
	}
	return b.String(), nil
}
