package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/jsonx"
	"github.com/hyperjump/examforge/internal/llm"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/parser"
	"github.com/hyperjump/examforge/internal/retry"
	"github.com/hyperjump/examforge/internal/usage"
)

type reply struct {
	text string
	err  error
}

// scriptedClient returns replies in order and repeats the last one.
type scriptedClient struct {
	mu      sync.Mutex
	replies []reply
	reqs    []llm.Request
	ctxErrs []error
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	r := c.replies[min(len(c.reqs), len(c.replies))-1]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Completion{Text: r.text, InputTokens: 100, OutputTokens: 200, RequestID: fmt.Sprintf("req-%d", len(c.reqs))}, nil
}

type callLog struct{ calls []usage.Call }

func (l *callLog) Record(c usage.Call) { l.calls = append(l.calls, c) }

func noSleep(ctx context.Context, d time.Duration) error { return nil }

var testExam = config.ExamConfig{Year: 2024, ExamType: "NEET", PaperCode: "2024-PHY", Subject: "Physics", SubjectCode: "phy"}

func newTestGenerator(c llm.Completer, rec usage.Recorder) *Generator {
	s := Settings{
		Model:     "test-model",
		MaxTokens: 4000,
		Policy:    retry.Policy{MaxAttempts: 3, Delay: time.Second, Pause: time.Second},
		Exam:      testExam,
	}
	return New(c, s, WithRecorder(rec), WithRetryOptions(retry.WithSleeper(noSleep)))
}

func siUnitBlock(t *testing.T) models.RawQuestionBlock {
	t.Helper()
	res := parser.New(20).Parse("7.\nWhat is the SI unit of force?\n(1) Joule (2) Newton (3) Watt (4) Pascal\nAnswer (2)")
	if len(res.Blocks) != 1 {
		t.Fatalf("parsed %d blocks", len(res.Blocks))
	}
	return res.Blocks[0]
}

const wrongAnswerJSON = "Here you go:\n```json\n" + `{
  "title": "SI unit of force",
  "questionText": "What is the SI unit of force?",
  "options": [
    {"id": "A", "text": "Joule", "isCorrect": true, "analysis": "Joule is energy"},
    {"id": "B", "text": "Newton", "isCorrect": false, "analysis": "kg m/s^2"},
    {"id": "C", "text": "Watt", "isCorrect": false, "analysis": "Watt is power"},
    {"id": "D", "text": "Pascal", "isCorrect": false, "analysis": "Pascal is pressure"}
  ],
  "correctOption": "A",
  "classification": {"chapter": "Laws of Motion", "topic": "Force", "conceptTags": ["force", "units"]},
  "stepByStep": [{"title": "Recall", "content": "F = ma"}, {"title": "Units", "content": "kg m/s^2 = N"}]
}` + "\n```"

func TestGenerateOverridesWrongAnswer(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: wrongAnswerJSON}}}
	rec := &callLog{}
	g := newTestGenerator(client, rec)

	q, out, err := g.Generate(context.Background(), siUnitBlock(t))
	if err != nil {
		t.Fatal(err)
	}
	if q.CorrectOption != models.OptionB {
		t.Errorf("correctOption = %s, want B", q.CorrectOption)
	}
	if q.CorrectCount() != 1 {
		t.Errorf("%d options flagged correct", q.CorrectCount())
	}
	if b, _ := q.Option(models.OptionB); !b.IsCorrect || b.Text != "Newton" || b.Analysis != "kg m/s^2" {
		t.Errorf("option B = %+v", b)
	}
	if !out.Overridden() || out.Override.Generated != models.OptionA || !out.Override.FlagsFixed {
		t.Errorf("outcome = %+v", out)
	}
	if q.ID != "neet_2024_phy_007" || q.QuestionNumber != 7 {
		t.Errorf("id = %s number = %d", q.ID, q.QuestionNumber)
	}
	if q.ExamInfo.PaperCode != "2024-PHY" || q.Classification.Subject != "Physics" {
		t.Errorf("defaults not filled: %+v %+v", q.ExamInfo, q.Classification)
	}
	if q.QuestionImages == nil || q.SolutionImages == nil {
		t.Error("image lists should be empty, not null")
	}
	if len(rec.calls) != 1 || !rec.calls[0].Success || rec.calls[0].RequestID != "req-1" {
		t.Errorf("recorded calls = %+v", rec.calls)
	}

	req := client.reqs[0]
	if !strings.Contains(req.System, "EXPLAIN, not to SOLVE") {
		t.Errorf("system prompt = %q", req.System)
	}
	for _, want := range []string{"Question 7:", "B) Newton", "Option B", `"correctOption": "B"`} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	client := &scriptedClient{replies: []reply{
		{err: &llm.StatusError{StatusCode: 529, Body: "overloaded"}},
		{text: "no json here"},
		{text: strings.Replace(wrongAnswerJSON, `"correctOption": "A"`, `"correctOption": "B"`, 1)},
	}}
	rec := &callLog{}
	q, out, err := newTestGenerator(client, rec).Generate(context.Background(), siUnitBlock(t))
	if err != nil {
		t.Fatal(err)
	}
	if out.Attempts != 3 || out.RequestID != "req-3" {
		t.Errorf("outcome = %+v", out)
	}
	if q.CorrectOption != models.OptionB {
		t.Errorf("correctOption = %s", q.CorrectOption)
	}
	if len(rec.calls) != 3 || rec.calls[0].Success || rec.calls[1].Success || !rec.calls[2].Success {
		t.Errorf("recorded calls = %+v", rec.calls)
	}
	if rec.calls[1].InputTokens != 100 {
		t.Error("tokens of an unparseable reply should still be recorded")
	}
}

func TestGenerateToleratesLooseFieldTypes(t *testing.T) {
	text := strings.Replace(wrongAnswerJSON, `"correctOption": "A"`, `"correctOption": 2`, 1)
	text = strings.Replace(text, `"topic": "Force",`, `"topic": "Force", "ncertClass": "11", "estimatedTime": 2.5,`, 1)
	client := &scriptedClient{replies: []reply{{text: text}}}
	rec := &callLog{}
	q, out, err := newTestGenerator(client, rec).Generate(context.Background(), siUnitBlock(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(client.reqs) != 1 || out.Attempts != 1 {
		t.Errorf("requests = %d, attempts = %d", len(client.reqs), out.Attempts)
	}
	if q.CorrectOption != models.OptionB || q.CorrectCount() != 1 {
		t.Errorf("correctOption = %s, %d flagged correct", q.CorrectOption, q.CorrectCount())
	}
	if q.Classification.NCERTClass != 11 || q.Classification.EstimatedTime != 3 {
		t.Errorf("classification = %+v", q.Classification)
	}
}

func TestGenerateShapeErrorIsNotReportedAsMissingJSON(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: `{"options": "none"}`}}}
	_, _, err := newTestGenerator(client, &callLog{}).Generate(context.Background(), siUnitBlock(t))
	if !errors.Is(err, jsonx.ErrShape) || errors.Is(err, jsonx.ErrNoJSON) {
		t.Fatalf("err = %v, want jsonx.ErrShape", err)
	}
}

func TestGenerateExhausted(t *testing.T) {
	client := &scriptedClient{replies: []reply{{err: errors.New("connection reset")}}}
	_, out, err := newTestGenerator(client, &callLog{}).Generate(context.Background(), siUnitBlock(t))
	var ex *retry.ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %v, want *retry.ExhaustedError", err)
	}
	if ex.Attempts != 3 || out.Attempts != 3 || len(client.reqs) != 3 {
		t.Errorf("attempts = %d/%d, requests = %d", ex.Attempts, out.Attempts, len(client.reqs))
	}
}

func TestGenerateNoGroundTruth(t *testing.T) {
	client := &scriptedClient{replies: []reply{{text: "{}"}}}
	block := siUnitBlock(t)
	block.Answer = ""
	_, _, err := newTestGenerator(client, &callLog{}).Generate(context.Background(), block)
	if !errors.Is(err, ErrNoGroundTruth) {
		t.Fatalf("err = %v, want ErrNoGroundTruth", err)
	}
	if len(client.reqs) != 0 {
		t.Error("no request should be sent without an answer key")
	}
}

func TestGenerateIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &scriptedClient{replies: []reply{{err: errors.New("boom")}, {text: wrongAnswerJSON}}}
	if _, _, err := newTestGenerator(client, &callLog{}).Generate(ctx, siUnitBlock(t)); err != nil {
		t.Fatal(err)
	}
	for i, e := range client.ctxErrs {
		if e != nil {
			t.Errorf("attempt %d saw cancelled context: %v", i+1, e)
		}
	}
}

func TestEnforceAnswer(t *testing.T) {
	block := models.RawQuestionBlock{
		Number:       3,
		QuestionText: "A body of mass 2 kg moves with speed 3 m/s. Its kinetic energy is",
		Options:      map[models.OptionID]string{"A": "6 J", "B": "9 J", "C": "18 J", "D": "3 J"},
		Answer:       models.OptionB,
	}
	exam := models.ExamInfo{Year: 2024, ExamType: "NEET", PaperCode: "P"}

	tests := []struct {
		name       string
		q          models.StructuredQuestion
		overridden bool
	}{
		{
			name: "agreeing output",
			q: models.StructuredQuestion{
				CorrectOption: "B",
				Options: []models.Option{
					{ID: "A", Text: "6 J"}, {ID: "B", Text: "9 J", IsCorrect: true}, {ID: "C", Text: "18 J"}, {ID: "D", Text: "3 J"},
				},
			},
		},
		{
			name:       "missing options",
			q:          models.StructuredQuestion{CorrectOption: "B"},
			overridden: false,
		},
		{
			name: "two flagged correct",
			q: models.StructuredQuestion{
				CorrectOption: "B",
				Options:       []models.Option{{ID: "A", IsCorrect: true}, {ID: "B", IsCorrect: true}},
			},
			overridden: true,
		},
		{
			name:       "invalid letter",
			q:          models.StructuredQuestion{CorrectOption: "E"},
			overridden: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.q
			ov := EnforceAnswer(&q, block, "neet_2024_phy_003", exam, "Physics")
			if (ov != nil) != tt.overridden {
				t.Errorf("override = %+v, want overridden=%v", ov, tt.overridden)
			}
			if q.CorrectOption != models.OptionB || q.CorrectCount() != 1 || len(q.Options) != 4 {
				t.Fatalf("result = %+v", q)
			}
			for i, o := range q.Options {
				if o.ID != models.OptionIDs[i] || o.Text != block.Options[o.ID] {
					t.Errorf("option %d = %+v", i, o)
				}
			}
			if q.QuestionText != block.QuestionText || q.ID != "neet_2024_phy_003" {
				t.Errorf("defaults = %q %q", q.ID, q.QuestionText)
			}
		})
	}
}
