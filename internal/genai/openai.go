package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// OpenAIClient wraps the OpenAI chat completion service.
type OpenAIClient struct {
	chat  chatService
	model string
	debug debugLogger
}

// NewOpenAIClient initializes a client using the provided key or OPENAI_API_KEY.
func NewOpenAIClient(opts ...Option) (*OpenAIClient, error) {
	cfg := buildOpts(DefaultOpenAIModel, "OPENAI_API_KEY", opts)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	cli := openai.NewClient(openaiopt.WithAPIKey(cfg.APIKey))
	slog.Debug("OpenAIClient initialized", "model", cfg.Model)
	return &OpenAIClient{
		chat:  completionsAdapter{svc: &cli.Chat.Completions},
		model: cfg.Model,
		debug: debugLogger{enabled: cfg.DebugMode, stateDir: cfg.StateDir},
	}, nil
}

// Generate sends prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
	resp, err := c.chat.Create(ctx, params)
	c.debug.log("OpenAIClient.Generate", c.model, params, resp, err)
	if err != nil {
		slog.Error("OpenAIClient.Generate: request failed", "error", err)
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}
