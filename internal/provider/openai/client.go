// Package openai implements the generation provider on the OpenAI
// chat-completions API (or any compatible endpoint).
package openai

import (
	"context"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/provider"
)

const defaultModel = "gpt-4o-mini"

// Client implements provider.Provider against an OpenAI-compatible API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; baseURL overrides the endpoint for
// compatible providers.
func NewClient(apiKey, model, baseURL string) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Complete sends a generation request.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, warrenErrors.Wrap(warrenErrors.CodeGenerationFailed, "completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, warrenErrors.New(warrenErrors.CodeGenerationFailed, "provider returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, warrenErrors.New(warrenErrors.CodeGenerationFailed, "provider returned empty content")
	}

	return &provider.Response{Text: text}, nil
}
