// Package llm provides HTTP transports for text-completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 300

// Request is one completion call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the endpoint's reply. Token counts are estimated when the endpoint
// omits usage.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	RequestID    string
}

// Completer sends one request to a generation endpoint.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// Option configures a client.
type Option func(*transport)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) { t.client = c }
}

// WithLogger sets the logger for request and response events.
func WithLogger(l *zap.Logger) Option {
	return func(t *transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(t *transport) {
		if d > 0 {
			t.client = &http.Client{Timeout: d}
		}
	}
}

type transport struct {
	client *http.Client
	logger *zap.Logger
}

func newTransport(opts []Option) transport {
	t := transport{
		client: &http.Client{Timeout: 90 * time.Second},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

// postJSON sends body to url and returns the raw response. Statuses >= 400 are
// returned as *StatusError with the body truncated.
func (t *transport) postJSON(ctx context.Context, url string, body any, headers map[string]string, reqID string) ([]byte, error) {
	start := time.Now()
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	t.logger.Debug("llm request", zap.String("req_id", reqID), zap.String("url", url), zap.Int("bytes", len(bs)))
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("llm send failed", zap.String("req_id", reqID), zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	t.logger.Debug("llm response", zap.String("req_id", reqID), zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	return raw, nil
}

// EstimateTokens approximates a token count as 1.3 tokens per word.
func EstimateTokens(text string) int {
	return int(math.Round(float64(len(strings.Fields(text))) * 1.3))
}

func newRequestID() string {
	return uuid.New().String()
}
