// Package compose builds assistant replies: it prompts the text generator and
// appends coping guidance and regional resources to the result.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/genai"
	"github.com/BTreeMap/Healora/internal/langdetect"
	"github.com/BTreeMap/Healora/internal/models"
	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/tone"
)

const (
	// FallbackReply replaces the generated text whenever generation fails.
	FallbackReply = "I'm here for you. Could you share a bit more so I can support you better?"
	// DefaultLanguage is used when detection fails.
	DefaultLanguage = "en"

	Temperature = 0.7
	MaxTokens   = 200
)

// Request carries one user turn.
type Request struct {
	Message string
	Mood    string
	Tone    string
	Region  string
}

// Composer produces replies and records them in the session transcript.
type Composer struct {
	catalog   *catalog.Catalog
	generator genai.Generator
	detector  langdetect.Detector
}

// Option configures a Composer.
type Option func(*Composer)

// WithDetector sets the language detector.
func WithDetector(d langdetect.Detector) Option {
	return func(c *Composer) {
		c.detector = d
	}
}

// New creates a Composer. gen may be nil, in which case every reply uses the fallback text.
func New(cat *catalog.Catalog, gen genai.Generator, opts ...Option) *Composer {
	c := &Composer{catalog: cat, generator: gen}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose appends the user turn to the transcript, generates a reply and writes it
// into the pending turn. It never fails.
func (c *Composer) Compose(ctx context.Context, s *session.State, req Request) string {
	mood, hasMood := models.ParseMood(req.Mood)
	if hasMood && mood != s.SelectedMood {
		s.AppendMoodNote(mood)
	}
	s.AppendExchange(req.Message)

	lang := DefaultLanguage
	if strings.TrimSpace(req.Message) != "" {
		lang = langdetect.DetectOr(c.detector, req.Message, DefaultLanguage)
	}
	region := catalog.ResolveRegion(req.Region)
	prompt := BuildPrompt(req.Message, lang, tone.Parse(req.Tone), region)

	text := c.generate(ctx, prompt)

	var b strings.Builder
	b.WriteString(text)
	if hasMood {
		fmt.Fprintf(&b, "\n\n**Coping Strategy**: %s", c.catalog.CopingFor(mood))
	}
	b.WriteString("\n\n**Recommended Resources**:\n")
	b.WriteString(strings.Join(c.catalog.ResourcesFor(region), "\n"))

	reply := b.String()
	s.AnswerPending(reply)
	return reply
}

func (c *Composer) generate(ctx context.Context, prompt string) string {
	if c.generator == nil {
		slog.Warn("Composer.Compose: no generator configured, using fallback reply")
		return FallbackReply
	}
	text, err := c.generator.Generate(ctx, prompt, Temperature, MaxTokens)
	if err != nil {
		slog.Error("Composer.Compose: generation failed", "error", err)
		return FallbackReply
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("Composer.Compose: generation failed", "error", models.ErrEmptyGeneration)
		return FallbackReply
	}
	return strings.TrimSpace(text)
}

// BuildPrompt assembles the generation instruction for one message.
func BuildPrompt(message, lang string, t tone.Tone, region models.Region) string {
	var b strings.Builder
	b.WriteString("You are Healora, a compassionate mental health support assistant. ")
	fmt.Fprintf(&b, "Engage in a supportive conversation with the user based on their input: %s\n", message)
	fmt.Fprintf(&b, "- Provide empathetic, sensitive responses in the user's language (detected as %s).\n", lang)
	b.WriteString("- If signs of distress are detected, suggest coping strategies relevant to their mood or input.\n")
	fmt.Fprintf(&b, "- Recommend professional resources tailored to the user's region (%s).\n", region)
	b.WriteString(tone.BuildToneGuide(t))
	return b.String()
}
