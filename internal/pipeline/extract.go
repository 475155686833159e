package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/examforge/internal/extract"
	"github.com/hyperjump/examforge/internal/models"
	"github.com/hyperjump/examforge/internal/parser"
	"github.com/hyperjump/examforge/internal/section"
)

// Extraction is the result of turning a document into records.
type Extraction struct {
	Pages   int
	Bounds  section.Bounds
	Report  parser.Report
	Records []models.RawQuestionBlock
}

// ExtractRecords reads every page of src, locates the target section and parses it.
func ExtractRecords(src extract.PageSource, loc *section.Locator, p *parser.Parser, logger *zap.Logger) (*Extraction, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pages, err := extract.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	ex := &Extraction{Pages: len(pages)}
	ex.Bounds = loc.Locate(pages)
	if !ex.Bounds.Found {
		logger.Warn("section start not found; using whole document", zap.Int("pages", len(pages)))
	}
	logger.Info("section located",
		zap.Int("start_page", ex.Bounds.Start+1),
		zap.Int("end_page", ex.Bounds.End),
		zap.Bool("found", ex.Bounds.Found))

	res := p.Parse(section.Text(pages, ex.Bounds))
	ex.Report = res.Report
	ex.Records = res.Blocks
	for _, r := range res.Report.Rejections {
		logger.Debug("block rejected", zap.Int("question", r.Number), zap.String("reason", r.Reason))
	}
	logger.Info("blocks parsed",
		zap.Int("segments", res.Report.Segments),
		zap.Int("blocks", len(res.Blocks)),
		zap.Int("strict", res.Report.Strict),
		zap.Int("tolerant", res.Report.Tolerant),
		zap.Int("rejected", res.Report.Rejected),
		zap.Int("discarded", res.Report.Discarded),
		zap.Int("missing_answer", res.Report.MissingAnswer),
		zap.Int("merged", res.Report.Merged))
	return ex, nil
}

// FilterRange keeps records whose number lies in [start, end]. A bound <= 0 is open.
func FilterRange(records []models.RawQuestionBlock, start, end int) []models.RawQuestionBlock {
	if start <= 0 && end <= 0 {
		return records
	}
	out := make([]models.RawQuestionBlock, 0, len(records))
	for _, r := range records {
		if start > 0 && r.Number < start {
			continue
		}
		if end > 0 && r.Number > end {
			continue
		}
		out = append(out, r)
	}
	return out
}
