package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	// MaxMessageHistory caps how much conversation history is sent per
	// request, keeping latency predictable on long calls.
	MaxMessageHistory = 20

	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is the provider-neutral chat message shape used by callers.
type Message struct {
	Role    string
	Content string
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a completion client. baseURL may point at any
// OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends the message list and returns the assistant reply text.
// Cancellation and deadlines come from ctx; the client itself does not retry.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) > MaxMessageHistory {
		// Keep the system message (always first) plus the most recent turns.
		trimmed := make([]Message, 0, MaxMessageHistory)
		trimmed = append(trimmed, messages[0])
		trimmed = append(trimmed, messages[len(messages)-(MaxMessageHistory-1):]...)
		messages = trimmed
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
