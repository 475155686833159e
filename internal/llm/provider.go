package llm

import (
	"fmt"

	"github.com/hyperjump/examforge/internal/config"
	"go.uber.org/zap"
)

// New returns the Completer for cfg.Provider.
func New(cfg config.GenerationConfig, logger *zap.Logger) (Completer, error) {
	opts := []Option{WithTimeout(cfg.Timeout), WithLogger(logger)}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, cfg.AnthropicVersion, opts...), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
