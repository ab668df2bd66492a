// Package ai wraps the generative model used by the collectible, course and
// support features.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDisabled is returned when no model is configured.
var ErrDisabled = errors.New("ai generation is not configured")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Generator produces text or structured JSON from a prompt.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	// GenerateJSON asks the model for a JSON document and decodes it into out.
	GenerateJSON(ctx context.Context, system, prompt string, out any) error
}

// Disabled is a Generator that always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) GenerateText(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) GenerateJSON(context.Context, string, string, any) error {
	return ErrDisabled
}

// DecodeJSON extracts the first JSON value from raw model output and decodes it
// into out. Markdown code fences and leading prose are tolerated.
func DecodeJSON(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrEmptyResponse
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON document in model output")
	}

	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding model output: %w", err)
	}
	return nil
}
