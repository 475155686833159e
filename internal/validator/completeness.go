package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/examforge/internal/models"
)

// Rule names reported in Result.Violations. A violation reads "<rule>: <detail>".
const (
	RuleRequired     = "required"
	RuleQuestionText = "question_text"
	RuleOptions      = "options"
	RuleCorrect      = "correct_option"
	RuleChapter      = "chapter"
	RuleTopic        = "topic"
	RuleConceptTags  = "concept_tags"
	RuleSteps        = "steps"
)

var genericPlaceholder = regexp.MustCompile(`(?i)^(unknown|n/?a|none|tbd|.*\bname here)$`)

// Result is the outcome of ValidateCompleteness. Every violated rule is listed.
type Result struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// ValidateCompleteness checks a generated record for required fields, minimum lengths,
// the four option ids, a valid correct option, real classification values and enough
// concept tags and explanation steps.
func (v *Validator) ValidateCompleteness(q *models.StructuredQuestion) Result {
	var out []string
	add := func(rule, format string, args ...any) {
		out = append(out, rule+": "+fmt.Sprintf(format, args...))
	}
	if q == nil {
		return Result{Violations: []string{RuleRequired + ": record is missing"}}
	}

	if q.ID == "" {
		add(RuleRequired, "id is missing")
	}
	if len(q.Options) == 0 {
		add(RuleRequired, "options are missing")
	}
	if q.CorrectOption == "" {
		add(RuleRequired, "correctOption is missing")
	}
	if q.Classification.Subject == "" && q.Classification.Chapter == "" && q.Classification.Topic == "" {
		add(RuleRequired, "classification is missing")
	}

	text := strings.TrimSpace(q.QuestionText)
	switch {
	case text == "":
		add(RuleRequired, "questionText is missing")
	case len(text) < v.rules.MinQuestionText:
		add(RuleQuestionText, "%d characters, need %d", len(text), v.rules.MinQuestionText)
	case v.isPlaceholder(text):
		add(RuleQuestionText, "placeholder text")
	}

	if len(q.Options) > 0 {
		seen := make(map[models.OptionID]bool, 4)
		for _, o := range q.Options {
			seen[o.ID] = true
			if strings.TrimSpace(o.Text) == "" || v.isPlaceholder(o.Text) {
				add(RuleOptions, "option %s has placeholder text", o.ID)
			}
		}
		if len(q.Options) != 4 || len(seen) != 4 || !seen["A"] || !seen["B"] || !seen["C"] || !seen["D"] {
			add(RuleOptions, "option ids must be exactly A, B, C, D, got %s", optionIDs(q.Options))
		}
	}

	if q.CorrectOption != "" && !q.CorrectOption.Valid() {
		add(RuleCorrect, "%q is not one of A-D", q.CorrectOption)
	}

	if v.isPlaceholderLabel(q.Classification.Chapter) {
		add(RuleChapter, "%q is empty or a placeholder", q.Classification.Chapter)
	}
	if v.isPlaceholderLabel(q.Classification.Topic) {
		add(RuleTopic, "%q is empty or a placeholder", q.Classification.Topic)
	}

	tags := 0
	for _, tag := range q.Classification.ConceptTags {
		if !v.isPlaceholderLabel(tag) {
			tags++
		}
	}
	if tags < v.rules.MinConceptTags {
		add(RuleConceptTags, "%d usable tags, need %d", tags, v.rules.MinConceptTags)
	}

	if len(q.StepByStep) < v.rules.MinSteps {
		add(RuleSteps, "%d steps, need %d", len(q.StepByStep), v.rules.MinSteps)
	}

	return Result{Valid: len(out) == 0, Violations: out}
}

func (v *Validator) isPlaceholder(s string) bool {
	for _, re := range v.placeholders {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (v *Validator) isPlaceholderLabel(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || genericPlaceholder.MatchString(s) || v.isPlaceholder(s)
}

func optionIDs(opts []models.Option) string {
	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, string(o.ID))
	}
	return "[" + strings.Join(ids, ",") + "]"
}

// Summary aggregates completeness results by rule.
type Summary struct {
	Total   int            `json:"total"`
	Valid   int            `json:"valid"`
	Invalid int            `json:"invalid"`
	ByRule  map[string]int `json:"by_rule,omitempty"`
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	s.Total++
	if r.Valid {
		s.Valid++
		return
	}
	s.Invalid++
	if s.ByRule == nil {
		s.ByRule = make(map[string]int)
	}
	for _, v := range r.Violations {
		rule, _, _ := strings.Cut(v, ":")
		s.ByRule[rule]++
	}
}

// Rules returns the violated rule names, most frequent first.
func (s *Summary) Rules() []string {
	rules := make([]string, 0, len(s.ByRule))
	for r := range s.ByRule {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if s.ByRule[rules[i]] != s.ByRule[rules[j]] {
			return s.ByRule[rules[i]] > s.ByRule[rules[j]]
		}
		return rules[i] < rules[j]
	})
	return rules
}

// Summarize aggregates a list of results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}
