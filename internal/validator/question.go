// Package validator filters non-question noise and checks generated records for completeness.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/pkg/utils"
)

const (
	minQuestionChars = 20
	minQuestionWords = 10
)

var (
	instructionStart = regexp.MustCompile(`(?i)^\s*(read|fill|write|darken|use only|do not|ensure)\b`)
	taskMarker       = regexp.MustCompile(`(?i)\?|\b(calculate|find|determine|if|when)\b`)
)

// Verdict is the outcome of IsQuestion. Reasons is empty when OK is true.
type Verdict struct {
	OK      bool
	Reasons []string
}

// Validator holds the compiled pattern sets and completeness thresholds.
type Validator struct {
	invalid      []*regexp.Regexp
	placeholders []*regexp.Regexp
	rules        config.ValidationConfig
}

// New returns a validator using the boilerplate and placeholder patterns of p.
func New(p *config.Patterns, rules config.ValidationConfig) *Validator {
	if rules.MinQuestionText <= 0 {
		rules.MinQuestionText = 20
	}
	if rules.MinConceptTags <= 0 {
		rules.MinConceptTags = 2
	}
	if rules.MinSteps <= 0 {
		rules.MinSteps = 2
	}
	return &Validator{invalid: p.Invalid, placeholders: p.Placeholders, rules: rules}
}

// IsQuestion reports whether text reads like an exam question rather than instructions
// or boilerplate.
func (v *Validator) IsQuestion(text string) Verdict {
	var reasons []string
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minQuestionChars {
		reasons = append(reasons, fmt.Sprintf("shorter than %d characters", minQuestionChars))
	}
	if n := utils.WordCount(trimmed); n < minQuestionWords {
		reasons = append(reasons, fmt.Sprintf("only %d words", n))
	}
	for _, re := range v.invalid {
		if re.MatchString(trimmed) {
			reasons = append(reasons, "matches boilerplate pattern "+re.String())
			break
		}
	}
	if m := instructionStart.FindStringSubmatch(trimmed); m != nil && !taskMarker.MatchString(trimmed) {
		reasons = append(reasons, fmt.Sprintf("instruction starting with %q", strings.ToLower(m[1])))
	}
	return Verdict{OK: len(reasons) == 0, Reasons: reasons}
}
