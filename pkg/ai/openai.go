package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI implements Provider using the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{client: &client, model: model}, nil
}

// Name implements Provider.
func (*OpenAI) Name() string { return "openai" }

// Complete implements Provider.
func (p *OpenAI) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
