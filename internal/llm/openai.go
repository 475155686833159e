package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OpenAIClient calls an OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	transport
}

// NewOpenAIClient returns a client for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIClient(baseURL, apiKey string, opts ...Option) *OpenAIClient {
	return &OpenAIClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		transport: newTransport(opts),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends req to /chat/completions and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	reqID := newRequestID()
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	body := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	raw, err := c.postJSON(ctx, c.baseURL+"/chat/completions", body, headers, reqID)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat response has no choices")
	}
	out := &Completion{Text: resp.Choices[0].Message.Content, RequestID: reqID}
	if resp.Usage != nil {
		out.InputTokens = resp.Usage.PromptTokens
		out.OutputTokens = resp.Usage.CompletionTokens
	} else {
		out.InputTokens = EstimateTokens(req.System + " " + req.Prompt)
		out.OutputTokens = EstimateTokens(out.Text)
	}
	return out, nil
}
