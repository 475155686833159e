package config

import "strings"

// Provider names accepted in generation.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ApplyEnv overrides file settings with environment variables. getenv is os.Getenv in
// production and a map lookup in tests.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("EXAMFORGE_PROVIDER"); v != "" {
		cfg.Generation.Provider = strings.ToLower(v)
	}
	if v := getenv("EXAMFORGE_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := getenv("EXAMFORGE_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := getenv("EXAMFORGE_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
		return
	}
	if cfg.Generation.APIKey != "" {
		return
	}
	switch cfg.Generation.Provider {
	case ProviderOpenAI:
		cfg.Generation.APIKey = getenv("OPENAI_API_KEY")
	default:
		cfg.Generation.APIKey = getenv("ANTHROPIC_API_KEY")
	}
}
