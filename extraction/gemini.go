package extraction

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator is a Generator backed by the Gemini API.
type GeminiGenerator struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

// NewGeminiGenerator creates a generator for the given API key and model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, maxOutputTokens: 8192}, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string { return g.model }

// Generate sends one deterministic, JSON-typed request.
func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   g.maxOutputTokens,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
		}
		return "", err
	}
	return resp.Text(), nil
}
