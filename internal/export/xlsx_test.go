package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/examforge/internal/models"
)

func TestWriteXLSX(t *testing.T) {
	ds := &models.Dataset{
		Questions: []models.StructuredQuestion{{
			ID:             "neet_2024_phy_007",
			QuestionNumber: 7,
			Title:          "SI unit of force",
			QuestionText:   "What is the SI unit of force?",
			CorrectOption:  "B",
			Options: []models.Option{
				{ID: "A", Text: "Joule"},
				{ID: "B", Text: "Newton", IsCorrect: true, Analysis: "kg m/s^2"},
				{ID: "C", Text: "Watt"},
				{ID: "D", Text: "Pascal"},
			},
			Classification: models.Classification{Chapter: "Laws of Motion", Topic: "Force", ConceptTags: []string{"units", "force"}},
			StepByStep:     []models.Step{{Title: "a"}, {Title: "b"}},
		}},
	}
	path := filepath.Join(t.TempDir(), "review.xlsx")
	if err := WriteXLSX(path, ds); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != QuestionsSheet || sheets[1] != OptionsSheet {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(QuestionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "neet_2024_phy_007" || rows[1][4] != "B" || rows[1][8] != "units, force" || rows[1][9] != "2" {
		t.Errorf("question rows = %v", rows)
	}
	opts, err := f.GetRows(OptionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 5 {
		t.Fatalf("option rows = %d", len(opts))
	}
	if opts[2][1] != "B" || opts[2][3] != "yes" || opts[2][4] != "kg m/s^2" {
		t.Errorf("option B row = %v", opts[2])
	}
}
