package config

import "time"

// DefaultSectionStart marks the first page of the physics section.
var DefaultSectionStart = []string{
	`PHYSICS`,
	`SECTION.*A.*PHYSICS`,
	`Physics\s+Section`,
	`PART.*A.*PHYSICS`,
}

// DefaultSectionEnd marks the first page after the physics section.
var DefaultSectionEnd = []string{
	`CHEMISTRY`,
	`BIOLOGY`,
	`BOTANY`,
	`ZOOLOGY`,
	`SECTION.*B`,
}

// DefaultInvalid matches exam instructions and boilerplate that look like question text.
var DefaultInvalid = []string{
	`test.*duration.*hours`,
	`blue.*black.*ball.*point.*pen`,
	`rough.*work`,
	`admit.*card`,
	`OMR.*sheet`,
	`candidates.*governed`,
	`marking.*scheme.*\d+.*marks`,
	`general.*instructions`,
	`use.*HB.*pencil`,
	`do.*not.*fold`,
	`follow.*instructions`,
	`negative.*marking.*deduct`,
	`test.*booklet.*contains`,
	`maximum.*marks.*are`,
	`read.*the.*following.*instructions`,
	`darken.*the.*correct.*choice`,
}

// DefaultPlaceholders matches template text the generation service echoed back unfilled.
var DefaultPlaceholders = []string{
	`placeholder`,
	`text\s+here`,
	`option\s+[A-D]\s+text`,
	`sample.*question`,
	`analysis\s+not\s+provided`,
	`chapter\s+name\s+here`,
	`topic\s+name\s+here`,
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.InputPath == "" {
		cfg.InputPath = "./NEET_2024.pdf"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.Exam.Year == 0 {
		cfg.Exam.Year = 2024
	}
	if cfg.Exam.ExamType == "" {
		cfg.Exam.ExamType = "NEET"
	}
	if cfg.Exam.Subject == "" {
		cfg.Exam.Subject = "Physics"
	}
	if cfg.Exam.SubjectCode == "" {
		cfg.Exam.SubjectCode = "phy"
	}
	if cfg.Exam.PaperCode == "" {
		cfg.Exam.PaperCode = "2024-PHY"
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = ProviderAnthropic
	}
	if cfg.Generation.BaseURL == "" {
		if cfg.Generation.Provider == ProviderOpenAI {
			cfg.Generation.BaseURL = "https://api.openai.com/v1"
		} else {
			cfg.Generation.BaseURL = "https://api.anthropic.com"
		}
	}
	if cfg.Generation.AnthropicVersion == "" {
		cfg.Generation.AnthropicVersion = "2023-06-01"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 4000
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 90 * time.Second
	}
	if cfg.Generation.MaxRetries == 0 {
		cfg.Generation.MaxRetries = 5
	}
	if cfg.Generation.ErrorDelay == 0 {
		cfg.Generation.ErrorDelay = 5 * time.Second
	}
	if cfg.Generation.RateLimitDelay == 0 {
		cfg.Generation.RateLimitDelay = time.Second
	}
	if cfg.Generation.InputCostPerMillion == 0 {
		cfg.Generation.InputCostPerMillion = 1.0
	}
	if cfg.Generation.OutputCostPerMillion == 0 {
		cfg.Generation.OutputCostPerMillion = 5.0
	}
	if cfg.Generation.CostWarnings == nil {
		cfg.Generation.CostWarnings = []float64{5, 10}
	}
	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 10
	}
	if cfg.Parser.MinQuestionChars == 0 {
		cfg.Parser.MinQuestionChars = 20
	}
	if cfg.Validation.MinQuestionText == 0 {
		cfg.Validation.MinQuestionText = 20
	}
	if cfg.Validation.MinConceptTags == 0 {
		cfg.Validation.MinConceptTags = 2
	}
	if cfg.Validation.MinSteps == 0 {
		cfg.Validation.MinSteps = 2
	}
	if cfg.Patterns.SectionStart == nil {
		cfg.Patterns.SectionStart = DefaultSectionStart
	}
	if cfg.Patterns.SectionEnd == nil {
		cfg.Patterns.SectionEnd = DefaultSectionEnd
	}
	if cfg.Patterns.Invalid == nil {
		cfg.Patterns.Invalid = DefaultInvalid
	}
	if cfg.Patterns.Placeholders == nil {
		cfg.Patterns.Placeholders = DefaultPlaceholders
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
