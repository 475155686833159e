// Package models defines the core data structures for extracted and generated questions.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OptionID identifies one of the four answer options.
type OptionID string

const (
	OptionA OptionID = "A"
	OptionB OptionID = "B"
	OptionC OptionID = "C"
	OptionD OptionID = "D"
)

// OptionIDs lists the option ids in display order.
var OptionIDs = []OptionID{OptionA, OptionB, OptionC, OptionD}

// OptionFromDigit maps the answer-key digit 1..4 to A..D.
// Any other digit reports false.
func OptionFromDigit(d int) (OptionID, bool) {
	if d < 1 || d > 4 {
		return "", false
	}
	return OptionIDs[d-1], true
}

// Valid reports whether id is one of A, B, C or D.
func (id OptionID) Valid() bool {
	switch id {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// UnmarshalJSON accepts "A".."D" in any case, the digits 1..4 as numbers or strings,
// and null. Unknown values decode to themselves so validation can report them.
func (id *OptionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ToUpper(strings.TrimSpace(s))
		if d, err := strconv.Atoi(s); err == nil {
			if o, ok := OptionFromDigit(d); ok {
				*id = o
				return nil
			}
		}
		*id = OptionID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option id: unsupported value %s", data)
	}
	*id = ""
	if n == math.Trunc(n) {
		if o, ok := OptionFromDigit(int(n)); ok {
			*id = o
		}
	}
	return nil
}

// RawQuestionBlock is a question as parsed from the source document.
// Answer is set only from the document's own answer key and is empty when absent.
type RawQuestionBlock struct {
	Number       int                 `json:"number"`
	QuestionText string              `json:"question_text"`
	Options      map[OptionID]string `json:"options"`
	Answer       OptionID            `json:"answer,omitempty"`
}

// HasAnswer reports whether the block carries a ground-truth answer.
func (b RawQuestionBlock) HasAnswer() bool {
	return b.Answer.Valid()
}

// String returns a short label used in logs.
func (b RawQuestionBlock) String() string {
	return fmt.Sprintf("Q%d", b.Number)
}

// ExamInfo identifies the paper a question comes from.
type ExamInfo struct {
	Year      int    `json:"year"`
	ExamType  string `json:"examType"`
	PaperCode string `json:"paperCode"`
}

// Option is one answer option of a structured question.
type Option struct {
	ID        OptionID `json:"id"`
	Text      string   `json:"text"`
	IsCorrect bool     `json:"isCorrect"`
	Analysis  string   `json:"analysis"`
}

// Classification carries syllabus and difficulty metadata.
type Classification struct {
	Subject       string   `json:"subject"`
	Chapter       string   `json:"chapter"`
	Topic         string   `json:"topic"`
	Subtopic      string   `json:"subtopic,omitempty"`
	NCERTClass    int      `json:"ncertClass,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	EstimatedTime int      `json:"estimatedTime,omitempty"`
	ConceptTags   []string `json:"conceptTags"`
	BloomsLevel   string   `json:"bloomsLevel,omitempty"`
}

// UnmarshalJSON reads ncertClass and estimatedTime from numbers or numeric strings,
// rounding fractions. Values that are not numeric decode to zero.
func (c *Classification) UnmarshalJSON(data []byte) error {
	type plain Classification
	aux := struct {
		*plain
		NCERTClass    json.RawMessage `json:"ncertClass"`
		EstimatedTime json.RawMessage `json:"estimatedTime"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.NCERTClass = lenientInt(aux.NCERTClass)
	c.EstimatedTime = lenientInt(aux.EstimatedTime)
	return nil
}

func lenientInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(math.Round(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return 0
}

// Step is one step of the worked explanation.
type Step struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Formula string `json:"formula,omitempty"`
	Insight string `json:"insight,omitempty"`
}

// StructuredQuestion is a question enriched by the generation service.
// Exactly one option is correct, and it always equals the document's answer.
type StructuredQuestion struct {
	ID             string          `json:"id"`
	QuestionNumber int             `json:"questionNumber"`
	ExamInfo       ExamInfo        `json:"examInfo"`
	Title          string          `json:"title"`
	QuestionText   string          `json:"questionText"`
	Options        []Option        `json:"options"`
	CorrectOption  OptionID        `json:"correctOption"`
	Classification Classification  `json:"classification"`
	StepByStep     []Step          `json:"stepByStep"`
	QuickMethod    json.RawMessage `json:"quickMethod,omitempty"`
	QuestionImages []string        `json:"questionImages"`
	SolutionImages []string        `json:"solutionImages"`
}

// CorrectCount returns how many options are flagged correct.
func (q *StructuredQuestion) CorrectCount() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

// Option returns the option with the given id.
func (q *StructuredQuestion) Option(id OptionID) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}
