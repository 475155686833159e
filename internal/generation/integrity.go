package generation

import (
	"github.com/hyperjump/examforge/internal/models"
)

// Override describes how generated output disagreed with the answer key.
type Override struct {
	Generated models.OptionID
	Truth     models.OptionID
	// FlagsFixed is set when the isCorrect flags disagreed with the key.
	FlagsFixed bool
}

// EnforceAnswer makes q agree with the document's answer key and fills the fields the
// document already determines. Options are rebuilt as exactly A..D from the document
// text, keeping the generated analysis per id. It returns a non-nil Override when the
// generated answer or flags disagreed with block.Answer.
func EnforceAnswer(q *models.StructuredQuestion, block models.RawQuestionBlock, id string, exam models.ExamInfo, subject string) *Override {
	truth := block.Answer
	var ov *Override

	if q.CorrectOption != truth {
		ov = &Override{Generated: q.CorrectOption, Truth: truth}
	}
	generated := make(map[models.OptionID]models.Option, len(q.Options))
	for _, o := range q.Options {
		if _, dup := generated[o.ID]; !dup {
			generated[o.ID] = o
		}
	}
	for _, o := range q.Options {
		if o.IsCorrect != (o.ID == truth) {
			if ov == nil {
				ov = &Override{Generated: q.CorrectOption, Truth: truth}
			}
			ov.FlagsFixed = true
			break
		}
	}

	opts := make([]models.Option, 0, len(models.OptionIDs))
	for _, oid := range models.OptionIDs {
		text := block.Options[oid]
		if text == "" {
			text = generated[oid].Text
		}
		opts = append(opts, models.Option{
			ID:        oid,
			Text:      text,
			IsCorrect: oid == truth,
			Analysis:  generated[oid].Analysis,
		})
	}
	q.Options = opts
	q.CorrectOption = truth

	q.ID = id
	q.QuestionNumber = block.Number
	if q.QuestionText == "" {
		q.QuestionText = block.QuestionText
	}
	if q.ExamInfo == (models.ExamInfo{}) {
		q.ExamInfo = exam
	}
	if q.Classification.Subject == "" {
		q.Classification.Subject = subject
	}
	if q.QuestionImages == nil {
		q.QuestionImages = []string{}
	}
	if q.SolutionImages == nil {
		q.SolutionImages = []string{}
	}
	return ov
}
