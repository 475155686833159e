// Package merge assembles committed batches into the final dataset.
package merge

import (
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/models"
)

const (
	// DatasetVersion is written to metadata.version.
	DatasetVersion = "3.0"
	// ProcessingMethod is written to metadata.processingMethod.
	ProcessingMethod = "answer key from source document; explanations generated"
)

// Report describes a merge.
type Report struct {
	Batches    int `json:"batches"`
	Questions  int `json:"questions"`
	Duplicates int `json:"duplicates"`
	// SchemaErr is set when the dataset does not match the schema. It never blocks output.
	SchemaErr error `json:"-"`
}

// Merger reads batch files; it never modifies them.
type Merger struct {
	batches *checkpoint.BatchStore
	exam    config.ExamConfig
	model   string
	logger  *zap.Logger
	now     func() time.Time
	schema  *jsonschema.Schema
}

// New returns a merger over the batches in batchesDir.
func New(batchesDir string, exam config.ExamConfig, model string, logger *zap.Logger) (*Merger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Merger{
		batches: checkpoint.NewBatchStore(batchesDir),
		exam:    exam,
		model:   model,
		logger:  logger,
		now:     time.Now,
		schema:  schema,
	}, nil
}

// Merge reads every committed batch in ascending order and keeps the first record
// for each id.
func (m *Merger) Merge() (*models.Dataset, Report, error) {
	var rep Report
	nums, err := m.batches.List()
	if err != nil {
		return nil, rep, fmt.Errorf("list batches: %w", err)
	}

	seen := make(map[string]struct{})
	questions := []models.StructuredQuestion{}
	minYear, maxYear := 0, 0
	for _, n := range nums {
		qs, err := m.batches.Read(n)
		if err != nil {
			return nil, rep, fmt.Errorf("read batch %d: %w", n, err)
		}
		rep.Batches++
		for _, q := range qs {
			if _, dup := seen[q.ID]; dup {
				rep.Duplicates++
				m.logger.Debug("duplicate record dropped", zap.String("id", q.ID), zap.Int("batch", n))
				continue
			}
			seen[q.ID] = struct{}{}
			questions = append(questions, q)
			if y := q.ExamInfo.Year; y > 0 {
				if minYear == 0 || y < minYear {
					minYear = y
				}
				if y > maxYear {
					maxYear = y
				}
			}
		}
	}
	if minYear == 0 {
		minYear, maxYear = m.exam.Year, m.exam.Year
	}
	rep.Questions = len(questions)

	ds := &models.Dataset{
		Metadata: models.DatasetMetadata{
			Version:          DatasetVersion,
			LastUpdated:      m.now().Format(time.RFC3339),
			TotalQuestions:   len(questions),
			Subject:          m.exam.Subject,
			YearRange:        fmt.Sprintf("%04d-%04d", minYear, maxYear),
			ProcessingMethod: ProcessingMethod,
			Model:            m.model,
		},
		Questions: questions,
	}
	if err := validateDataset(m.schema, ds); err != nil {
		rep.SchemaErr = err
		m.logger.Warn("dataset schema check failed; writing anyway", zap.Error(err))
	}
	m.logger.Info("batches merged",
		zap.Int("batches", rep.Batches),
		zap.Int("questions", rep.Questions),
		zap.Int("duplicates", rep.Duplicates))
	return ds, rep, nil
}

// WriteDataset replaces path with ds atomically.
func (m *Merger) WriteDataset(path string, ds *models.Dataset) error {
	if err := checkpoint.WriteJSONAtomic(path, ds); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	m.logger.Info("dataset written", zap.String("path", path), zap.Int("questions", len(ds.Questions)))
	return nil
}
