package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/checkpoint"
	"github.com/hyperjump/examforge/internal/config"
	"github.com/hyperjump/examforge/internal/keyword"
	"github.com/hyperjump/examforge/internal/merge"
	"github.com/hyperjump/examforge/internal/models"
)

// Catalog is a read-only, reloadable view of an output directory.
type Catalog struct {
	layout   config.Layout
	merger   *merge.Merger
	progress *checkpoint.ProgressStore
	failures *checkpoint.FailureLog
	logger   *zap.Logger

	mu         sync.RWMutex
	questions  []models.StructuredQuestion
	byID       map[string]int
	prog       *models.ProcessingProgress
	failed     []models.FailureRecord
	batches    int
	duplicates int
	loadedAt   time.Time
	index      *keyword.QuestionIndex
}

// NewCatalog returns an empty catalog; call Reload to populate it.
func NewCatalog(layout config.Layout, merger *merge.Merger, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		layout:   layout,
		merger:   merger,
		progress: checkpoint.NewProgressStore(layout.ProgressFile),
		failures: checkpoint.NewFailureLog(layout.FailureLog),
		logger:   logger,
		byID:     map[string]int{},
		prog:     models.NewProgress(),
	}
}

// Reload merges the committed batches in memory and rebuilds the search index. The
// previous view stays in place when loading fails.
func (c *Catalog) Reload() error {
	ds, rep, err := c.merger.Merge()
	if err != nil {
		return fmt.Errorf("merge batches: %w", err)
	}
	prog, _, err := c.progress.Load()
	if err != nil {
		return err
	}
	failed, err := c.failures.Read()
	if err != nil {
		return fmt.Errorf("read failure log: %w", err)
	}
	idx, err := keyword.NewQuestionIndex()
	if err != nil {
		return err
	}
	if err := idx.IndexAll(ds.Questions); err != nil {
		_ = idx.Close()
		return err
	}
	byID := make(map[string]int, len(ds.Questions))
	for i, q := range ds.Questions {
		byID[q.ID] = i
	}

	c.mu.Lock()
	old := c.index
	c.questions = ds.Questions
	c.byID = byID
	c.prog = prog
	c.failed = failed
	c.batches = rep.Batches
	c.duplicates = rep.Duplicates
	c.loadedAt = time.Now()
	c.index = idx
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	c.logger.Info("catalog reloaded",
		zap.Int("questions", len(ds.Questions)),
		zap.Int("batches", rep.Batches),
		zap.Int("failures", len(failed)))
	return nil
}

// Close releases the search index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}

// Status summarizes the loaded view.
type Status struct {
	Progress   *models.ProcessingProgress `json:"progress"`
	Batches    int                        `json:"batches"`
	Questions  int                        `json:"questions"`
	Duplicates int                        `json:"duplicates"`
	Failures   int                        `json:"failures"`
	LoadedAt   time.Time                  `json:"loaded_at"`
}

// Status returns counts of the loaded view.
func (c *Catalog) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Progress:   c.prog,
		Batches:    c.batches,
		Questions:  len(c.questions),
		Duplicates: c.duplicates,
		Failures:   len(c.failed),
		LoadedAt:   c.loadedAt,
	}
}

// Filter selects questions by classification. Empty fields match everything.
type Filter struct {
	Chapter    string
	Difficulty string
}

func (f Filter) match(q *models.StructuredQuestion) bool {
	if f.Chapter != "" && !strings.EqualFold(q.Classification.Chapter, f.Chapter) {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(q.Classification.Difficulty, f.Difficulty) {
		return false
	}
	return true
}

// Questions returns the questions matching f in question-number order.
func (c *Catalog) Questions(f Filter) []models.StructuredQuestion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.StructuredQuestion{}
	for i := range c.questions {
		if f.match(&c.questions[i]) {
			out = append(out, c.questions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QuestionNumber < out[j].QuestionNumber })
	return out
}

// Question returns the question with id.
func (c *Catalog) Question(id string) (models.StructuredQuestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return models.StructuredQuestion{}, false
	}
	return c.questions[i], true
}

// SearchResult is a hit with enough of the question to render a list.
type SearchResult struct {
	ID             string  `json:"id"`
	Score          float64 `json:"score"`
	QuestionNumber int     `json:"questionNumber"`
	Title          string  `json:"title"`
	Chapter        string  `json:"chapter"`
}

// Search runs a full-text query over the loaded questions.
func (c *Catalog) Search(query string, limit, fuzziness int) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return []SearchResult{}, nil
	}
	hits, err := c.index.Search(query, limit, fuzziness)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		i, ok := c.byID[h.ID]
		if !ok {
			continue
		}
		q := &c.questions[i]
		out = append(out, SearchResult{
			ID:             h.ID,
			Score:          h.Score,
			QuestionNumber: q.QuestionNumber,
			Title:          q.Title,
			Chapter:        q.Classification.Chapter,
		})
	}
	return out, nil
}

// Failures returns the parsed failure log.
func (c *Catalog) Failures() []models.FailureRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.FailureRecord{}, c.failed...)
}
