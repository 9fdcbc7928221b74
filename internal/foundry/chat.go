package foundry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ChatMessage is a message sent to the chat completions API
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body of the chat completions API
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatCompletionResponse is the response body of the chat completions API
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice is one completion candidate
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage reports token usage
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the content of the first choice
func (r *ChatCompletionResponse) Text() (string, error) {
	if len(r.Choices) == 0 {
		return "", errors.New("no response from API")
	}
	return r.Choices[0].Message.Content, nil
}

// ChatCompletion sends messages to the deployment named model
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []ChatMessage) (*ChatCompletionResponse, error) {
	if model == "" {
		return nil, errors.New("model is required")
	}
	if len(messages) == 0 {
		return nil, errors.New("at least one message is required")
	}

	base, err := c.resourceURL()
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, CognitiveServicesScope)
	if err != nil {
		return nil, err
	}
	req.SetQueryParam("api-version", c.apiVersion).
		SetBody(ChatCompletionRequest{Model: model, Messages: messages})

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions", base, url.PathEscape(model))

	var result ChatCompletionResponse
	if err := c.do(req, http.MethodPost, endpoint, &result); err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	return &result, nil
}
