package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"

	defaultTemperature = 0.6
	defaultMaxTokens   = 512
)

// Completer is one chat-completion backend behind a single credential.
// The gateway holds an ordered list of these and rotates across them.
type Completer interface {
	Complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error)
}

// GroqClient calls the Groq chat-completion API through its
// OpenAI-compatible endpoint.
type GroqClient struct {
	client      *openai.Client
	temperature float32
	maxTokens   int
}

func NewGroqClient(apiKey string) *GroqClient {
	// Groq uses OpenAI-compatible API with custom base URL
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = groqBaseURL

	return &GroqClient{
		client:      openai.NewClientWithConfig(config),
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
}

func (c *GroqClient) Complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("groq error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Groq")
	}
	return resp.Choices[0].Message.Content, nil
}
