package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini implements Provider using Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. Close releases the underlying client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying API client.
func (p *Gemini) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// Name implements Provider.
func (*Gemini) Name() string { return "gemini" }

// Complete implements Provider.
func (p *Gemini) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(temperature))
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text, nil
}
