package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates content through Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator. An API key is required.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	return NewGeminiWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

// NewGeminiWithConfig creates a Gemini generator from a full client config,
// e.g. one with HTTPOptions.BaseURL pointing at a different endpoint.
func NewGeminiWithConfig(ctx context.Context, cfg *genai.ClientConfig, model string) (*Gemini, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// GenerateText returns the model's plain-text answer.
func (g *Gemini) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	text, err := g.generate(ctx, system, prompt, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateJSON requests an application/json response and decodes it into out.
func (g *Gemini) GenerateJSON(ctx context.Context, system, prompt string, out any) error {
	text, err := g.generate(ctx, system, prompt, "application/json")
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}

func (g *Gemini) generate(ctx context.Context, system, prompt, mimeType string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.8),
		ResponseMIMEType: mimeType,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
