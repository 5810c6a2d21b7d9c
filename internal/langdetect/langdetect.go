// Package langdetect identifies the language of user messages.
package langdetect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetermined is returned when no language can be identified.
var ErrUndetermined = errors.New("language could not be determined")

// Detector returns the ISO-639-1 tag of a text.
type Detector interface {
	Detect(text string) (string, error)
}

// WhatlangDetector is a Detector backed by whatlanggo trigram detection.
type WhatlangDetector struct {
	minConfidence float64
}

// Option configures a WhatlangDetector.
type Option func(*WhatlangDetector)

// WithMinConfidence rejects detections below c.
func WithMinConfidence(c float64) Option {
	return func(d *WhatlangDetector) {
		d.minConfidence = c
	}
}

// New creates a WhatlangDetector.
func New(opts ...Option) *WhatlangDetector {
	d := &WhatlangDetector{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect identifies the language of text.
func (d *WhatlangDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}
	info := whatlanggo.Detect(text)
	if info.Confidence < d.minConfidence {
		return "", ErrUndetermined
	}
	tag := info.Lang.Iso6391()
	if tag == "" {
		return "", ErrUndetermined
	}
	return tag, nil
}

// DetectOr returns the detected tag, or fallback when detection fails.
func DetectOr(d Detector, text, fallback string) string {
	if d == nil {
		return fallback
	}
	tag, err := d.Detect(text)
	if err != nil || tag == "" {
		return fallback
	}
	return tag
}
