package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/models"
)

var exam = config.ExamConfig{Year: 2024, ExamType: "NEET", PaperCode: "2024-PHY", Subject: "Physics", SubjectCode: "phy"}

func record(n int, year int) models.StructuredQuestion {
	return models.StructuredQuestion{
		ID:             fmt.Sprintf("neet_2024_phy_%03d", n),
		QuestionNumber: n,
		ExamInfo:       models.ExamInfo{Year: year, ExamType: "NEET", PaperCode: "2024-PHY"},
		Title:          "A descriptive title",
		QuestionText:   "What is the SI unit of force in mechanics?",
		Options: []models.Option{
			{ID: "A", Text: "Joule", Analysis: "energy"},
			{ID: "B", Text: "Newton", IsCorrect: true, Analysis: "force"},
			{ID: "C", Text: "Watt", Analysis: "power"},
			{ID: "D", Text: "Pascal", Analysis: "pressure"},
		},
		CorrectOption: "B",
		Classification: models.Classification{
			Subject: "Physics", Chapter: "Laws of Motion", Topic: "Force", ConceptTags: []string{"units"},
		},
		StepByStep:     []models.Step{{Title: "Recall", Content: "F = ma"}},
		QuestionImages: []string{},
		SolutionImages: []string{},
	}
}

func newMerger(t *testing.T, dir string) *Merger {
	t.Helper()
	m, err := New(dir, exam, "test-model", nil)
	if err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestMergeDeduplicates(t *testing.T) {
	dir := t.TempDir()
	store := checkpoint.NewBatchStore(dir)
	first := record(1, 2024)
	first.Title = "First occurrence wins"
	later := record(1, 2024)
	later.Title = "Later duplicate"
	if err := store.Write(0, []models.StructuredQuestion{first, record(2, 2024)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(1, []models.StructuredQuestion{later, record(3, 2023)}); err != nil {
		t.Fatal(err)
	}

	m := newMerger(t, dir)
	ds, rep, err := m.Merge()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Batches != 2 || rep.Duplicates != 1 || rep.Questions != 3 {
		t.Errorf("report = %+v", rep)
	}
	if rep.SchemaErr != nil {
		t.Errorf("unexpected schema error: %v", rep.SchemaErr)
	}
	if len(ds.Questions) != 3 || ds.Questions[0].Title != "First occurrence wins" {
		t.Errorf("questions = %+v", ds.Questions)
	}
	md := ds.Metadata
	if md.TotalQuestions != 3 || md.YearRange != "2023-2024" || md.Subject != "Physics" ||
		md.LastUpdated != "2024-06-01T12:00:00Z" || md.Model != "test-model" {
		t.Errorf("metadata = %+v", md)
	}
}

func TestMergeEmpty(t *testing.T) {
	m := newMerger(t, filepath.Join(t.TempDir(), "missing"))
	ds, rep, err := m.Merge()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Batches != 0 || len(ds.Questions) != 0 || ds.Metadata.YearRange != "2024-2024" {
		t.Errorf("ds = %+v rep = %+v", ds, rep)
	}
	if ds.Questions == nil {
		t.Error("questions must encode as [] rather than null")
	}
}

func TestMergeSchemaWarningDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	bad := record(4, 2024)
	bad.Options = bad.Options[:2]
	if err := checkpoint.NewBatchStore(dir).Write(0, []models.StructuredQuestion{bad}); err != nil {
		t.Fatal(err)
	}
	m := newMerger(t, dir)
	ds, rep, err := m.Merge()
	if err != nil {
		t.Fatal(err)
	}
	if rep.SchemaErr == nil {
		t.Error("expected schema error for two options")
	}

	out := filepath.Join(t.TempDir(), "dataset.json")
	if err := m.WriteDataset(out, ds); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var back models.Dataset
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Metadata.TotalQuestions != 1 {
		t.Errorf("written dataset = %+v", back.Metadata)
	}
}
