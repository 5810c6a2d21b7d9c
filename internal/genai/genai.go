// Package genai provides text generation over OpenAI, Gemini and Anthropic behind
// a single Generator interface.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider names a generation backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

var (
	// ErrNoChoicesReturned is returned when a backend answers without any content.
	ErrNoChoicesReturned = errors.New("no choices returned")
	// ErrMissingAPIKey is returned when a client is built without credentials.
	ErrMissingAPIKey = errors.New("API key not set")
	// ErrUnknownProvider is returned by NewGenerator for unsupported providers.
	ErrUnknownProvider = errors.New("unknown genai provider")
)

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Opts holds configuration options for GenAI clients.
type Opts struct {
	APIKey    string
	Model     string
	DebugMode bool   // write every call to StateDir/debug
	StateDir  string // state directory for debug logs
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAPIKey sets the API key for the client.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithDebugMode enables request/response dumps under the state directory.
func WithDebugMode(debug bool) Option {
	return func(o *Opts) {
		o.DebugMode = debug
	}
}

// WithStateDir sets the state directory used for debug logs.
func WithStateDir(dir string) Option {
	return func(o *Opts) {
		o.StateDir = dir
	}
}

// NewGenerator builds the Generator for provider.
func NewGenerator(ctx context.Context, provider Provider, opts ...Option) (Generator, error) {
	var (
		gen Generator
		err error
	)
	switch Provider(strings.ToLower(string(provider))) {
	case ProviderOpenAI, "":
		gen, err = NewOpenAIClient(opts...)
	case ProviderGemini:
		gen, err = NewGeminiClient(ctx, opts...)
	case ProviderAnthropic:
		gen, err = NewAnthropicClient(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func buildOpts(defaultModel, keyEnv string, opts []Option) Opts {
	cfg := Opts{Model: defaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(keyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return cfg
}

// debugLogger writes one JSON file per call when enabled.
type debugLogger struct {
	enabled  bool
	stateDir string
}

func (d debugLogger) log(method, model string, params, response interface{}, callErr error) {
	if !d.enabled || d.stateDir == "" {
		return
	}
	dir := filepath.Join(d.stateDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("genai debug: failed to create debug directory", "dir", dir, "error", err)
		return
	}
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"method":    method,
		"model":     model,
		"params":    params,
		"response":  response,
	}
	if callErr != nil {
		entry["error"] = callErr.Error()
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("genai debug: failed to marshal entry", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s.json", time.Now().UTC().Format("20060102T150405.000000000"), method)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		slog.Warn("genai debug: failed to write entry", "error", err)
	}
}
