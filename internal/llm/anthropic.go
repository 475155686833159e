package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	baseURL string
	apiKey  string
	version string
	transport
}

// NewAnthropicClient returns a client for baseURL (e.g. https://api.anthropic.com).
func NewAnthropicClient(baseURL, apiKey, version string, opts ...Option) *AnthropicClient {
	return &AnthropicClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		version:   version,
		transport: newTransport(opts),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends req to /v1/messages and concatenates the text content blocks.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	reqID := newRequestID()
	body := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": c.version,
	}
	raw, err := c.postJSON(ctx, c.baseURL+"/v1/messages", body, headers, reqID)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := &Completion{Text: b.String(), RequestID: reqID}
	if resp.Usage != nil {
		out.InputTokens = resp.Usage.InputTokens
		out.OutputTokens = resp.Usage.OutputTokens
	} else {
		out.InputTokens = EstimateTokens(req.System + " " + req.Prompt)
		out.OutputTokens = EstimateTokens(out.Text)
	}
	return out, nil
}
