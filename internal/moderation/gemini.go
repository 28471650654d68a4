package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var errMissingAPIKey = errors.New("moderation: api key is required")

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	// HTTPClient overrides the transport used to reach the Gemini API.
	HTTPClient *http.Client
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

// GeminiGenerator calls the Gemini generateContent endpoint.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("moderation: model is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("moderation: create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Generate sends prompt to the model and returns the concatenated text parts.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("moderation: generate content: %w", err)
	}
	return result.Text(), nil
}
