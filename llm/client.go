// Client narrows a Provider to plain text completions for callers that
// never see tool calls, such as analysis narratives.

package llm

import (
	"context"
)

// Client wraps a Provider with a text-in text-out interface.
type Client struct {
	provider Provider
}

// NewClient creates a client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
