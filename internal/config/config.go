// Package config provides configuration loading and structs for examforge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when generation needs a key and none is set.
var ErrMissingAPIKey = errors.New("generation api key is not set")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	InputPath  string           `yaml:"input_path"`
	OutputDir  string           `yaml:"output_dir"`
	OutputPath string           `yaml:"output_path"`
	Exam       ExamConfig       `yaml:"exam"`
	Generation GenerationConfig `yaml:"generation"`
	Batch      BatchConfig      `yaml:"batch"`
	Parser     ParserConfig     `yaml:"parser"`
	Validation ValidationConfig `yaml:"validation"`
	Patterns   PatternConfig    `yaml:"patterns"`
	Server     ServerConfig     `yaml:"server"`
}

// ExamConfig identifies the paper being processed.
type ExamConfig struct {
	Year        int    `yaml:"year"`
	ExamType    string `yaml:"exam_type"`
	PaperCode   string `yaml:"paper_code"`
	Subject     string `yaml:"subject"`
	SubjectCode string `yaml:"subject_code"`
}

// GenerationConfig holds the generation endpoint, retry and pricing settings.
type GenerationConfig struct {
	Provider             string        `yaml:"provider"`
	BaseURL              string        `yaml:"base_url"`
	APIKey               string        `yaml:"api_key"`
	AnthropicVersion     string        `yaml:"anthropic_version"`
	Model                string        `yaml:"model"`
	Temperature          float64       `yaml:"temperature"`
	MaxTokens            int           `yaml:"max_tokens"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"max_retries"`
	ErrorDelay           time.Duration `yaml:"error_delay"`
	RateLimitDelay       time.Duration `yaml:"rate_limit_delay"`
	InputCostPerMillion  float64       `yaml:"input_cost_per_million"`
	OutputCostPerMillion float64       `yaml:"output_cost_per_million"`
	CostWarnings         []float64     `yaml:"cost_warnings"`
}

// BatchConfig holds batch orchestration settings.
type BatchConfig struct {
	Size             int   `yaml:"size"`
	Resume           *bool `yaml:"resume"`
	StrictValidation bool  `yaml:"strict_validation"`
}

// ResumeOrDefault returns whether to resume from saved progress; defaults to true when unset.
func (b *BatchConfig) ResumeOrDefault() bool {
	if b.Resume != nil {
		return *b.Resume
	}
	return true
}

// ParserConfig holds block parser settings.
type ParserConfig struct {
	MinQuestionChars int `yaml:"min_question_chars"`
}

// ValidationConfig holds completeness check thresholds.
type ValidationConfig struct {
	MinQuestionText int `yaml:"min_question_text"`
	MinConceptTags  int `yaml:"min_concept_tags"`
	MinSteps        int `yaml:"min_steps"`
}

// PatternConfig holds the heuristic regular expressions. All are matched case-insensitively.
type PatternConfig struct {
	SectionStart []string `yaml:"section_start"`
	SectionEnd   []string `yaml:"section_end"`
	Invalid      []string `yaml:"invalid"`
	Placeholders []string `yaml:"placeholders"`
}

// ServerConfig holds inspection HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, and expands paths. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ApplyEnv(&cfg, os.Getenv)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.InputPath = expandPath(cfg.InputPath, configDir)
	cfg.OutputDir = expandPath(cfg.OutputDir, configDir)
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(cfg.OutputDir, "dataset.json")
	}
	cfg.OutputPath = expandPath(cfg.OutputPath, configDir)

	return &cfg, nil
}

// Validate checks settings that cannot be defaulted. requireKey is false for dry runs,
// which never call the generation endpoint.
func (c *Config) Validate(requireKey bool) error {
	if requireKey && strings.TrimSpace(c.Generation.APIKey) == "" {
		return ErrMissingAPIKey
	}
	switch c.Generation.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Batch.Size)
	}
	if c.Generation.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.Generation.MaxRetries)
	}
	if c.InputPath == "" {
		return errors.New("input path is not set")
	}
	return nil
}

// Layout returns the on-disk locations derived from OutputDir.
func (c *Config) Layout() Layout {
	return Layout{
		BatchesDir:   filepath.Join(c.OutputDir, "batches"),
		LogsDir:      filepath.Join(c.OutputDir, "logs"),
		ProgressFile: filepath.Join(c.OutputDir, "processing_progress.json"),
		FailureLog:   filepath.Join(c.OutputDir, "failed_questions.log"),
		LedgerPath:   filepath.Join(c.OutputDir, "usage.db"),
		DatasetPath:  c.OutputPath,
	}
}

// Layout lists the files a run reads and writes.
type Layout struct {
	BatchesDir   string
	LogsDir      string
	ProgressFile string
	FailureLog   string
	LedgerPath   string
	DatasetPath  string
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" paths are relative to the home directory; other relative paths are left to the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
