// Package llm wraps the hosted OpenAI-compatible chat and embedding APIs.
// Both Mistral and OpenAI expose the same wire surface, so a single client
// configured with the provider's base URL covers every registered provider.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/contextutil"
)

// Client is a chat-completions client for an OpenAI-compatible API.
type Client struct {
	Model  string
	client *openai.Client
}

// NewClient creates a new chat client against the given base URL
// (e.g. "https://api.mistral.ai/v1").
func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		Model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Complete sends the messages to the chat completions endpoint and returns
// the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: params.Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "chat completion failed", "model", c.Model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	answer := resp.Choices[0].Message.Content
	logger.DebugContext(ctx, "chat completion succeeded", "model", c.Model, "answer_length", len(answer))
	return answer, nil
}
