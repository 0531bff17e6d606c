package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4o

// OpenAI is a Provider backed by the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// GenerateObject asks the model for a JSON object. The JSON response
// format constrains the output to a single parseable object.
func (o *OpenAI) GenerateObject(ctx context.Context, prompt string, temperature float32) ([]byte, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return []byte(resp.Choices[0].Message.Content), nil
}
