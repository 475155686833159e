// Package export renders a dataset as a review workbook.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/models"
)

const (
	QuestionsSheet = "Questions"
	OptionsSheet   = "Options"
)

var (
	questionHeader = []any{"ID", "Number", "Title", "Question", "Correct", "Chapter", "Topic", "Difficulty", "Concept tags", "Steps"}
	optionHeader   = []any{"Question ID", "Option", "Text", "Correct", "Analysis"}
)

// Workbook builds the review workbook for ds. The caller must Close it.
func Workbook(ds *models.Dataset) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", QuestionsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(OptionsSheet); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRow(f, QuestionsSheet, 1, questionHeader); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRow(f, OptionsSheet, 1, optionHeader); err != nil {
		f.Close()
		return nil, err
	}
	_ = f.SetRowStyle(QuestionsSheet, 1, 1, bold)
	_ = f.SetRowStyle(OptionsSheet, 1, 1, bold)

	optRow := 2
	for i, q := range ds.Questions {
		c := q.Classification
		row := []any{
			q.ID, q.QuestionNumber, q.Title, q.QuestionText, string(q.CorrectOption),
			c.Chapter, c.Topic, c.Difficulty, strings.Join(c.ConceptTags, ", "), len(q.StepByStep),
		}
		if err := writeRow(f, QuestionsSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
		for _, o := range q.Options {
			correct := ""
			if o.IsCorrect {
				correct = "yes"
			}
			if err := writeRow(f, OptionsSheet, optRow, []any{q.ID, string(o.ID), o.Text, correct, o.Analysis}); err != nil {
				f.Close()
				return nil, err
			}
			optRow++
		}
	}
	_ = f.SetColWidth(QuestionsSheet, "C", "D", 60)
	_ = f.SetColWidth(OptionsSheet, "E", "E", 80)
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// WriteXLSX writes the workbook for ds to path atomically.
func WriteXLSX(path string, ds *models.Dataset) error {
	f, err := Workbook(ds)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return checkpoint.WriteFileAtomic(path, buf.Bytes(), 0644)
}
