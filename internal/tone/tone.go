// Package tone provides the fixed whitelist of conversation tones a user may pick,
// validation of raw selections, and prompt-guide construction for the composer.
package tone

import (
	"strings"
)

// Tone is a conversation style selected by the user.
type Tone string

const (
	Calm         Tone = "calm"
	Motivational Tone = "motivational"
	Neutral      Tone = "neutral"
)

// AllTones is the hard-coded set of safe tones.
var AllTones = map[Tone]bool{
	Calm:         true,
	Motivational: true,
	Neutral:      true,
}

var instructions = map[Tone]string{
	Calm:         "Respond in a soothing, gentle tone to promote relaxation.",
	Motivational: "Use an uplifting, encouraging tone to inspire confidence.",
	Neutral:      "Maintain a balanced, empathetic tone.",
}

// Parse normalizes a raw selection. Unknown or empty values resolve to Neutral.
func Parse(raw string) Tone {
	t := Tone(strings.ToLower(strings.TrimSpace(raw)))
	if AllTones[t] {
		return t
	}
	return Neutral
}

// Instruction returns the one-line style instruction for t.
func Instruction(t Tone) string {
	if s, ok := instructions[Parse(string(t))]; ok {
		return s
	}
	return instructions[Neutral]
}

// BuildToneGuide produces a compact instruction snippet for injection into LLM prompts.
func BuildToneGuide(t Tone) string {
	var b strings.Builder
	b.WriteString("<TONE POLICY>\n")
	b.WriteString("- " + Instruction(t) + "\n")
	b.WriteString("- Keep responses concise, warm, and encouraging.\n")
	b.WriteString("- NEVER mirror hostility, sarcasm, insults, or unsafe language.\n")
	b.WriteString("</TONE POLICY>\n")
	return b.String()
}
