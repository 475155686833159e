// Package keyword provides in-memory full-text search over structured questions with Bleve.
package keyword

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/examforge/internal/models"
)

// titleBoost weights title matches above body matches.
const titleBoost = 3.0

// Hit is a single search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// QuestionIndex is a memory-only Bleve index of questions.
type QuestionIndex struct {
	index bleve.Index
}

// NewQuestionIndex returns an empty index.
func NewQuestionIndex() (*QuestionIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "newton" matches "Newton's".
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range []string{"title", "questionText", "chapter", "topic", "tags"} {
		docMapping.AddFieldMappingsAt(f, text)
	}
	docMapping.AddFieldMappingsAt("difficulty", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("question", docMapping)
	im.DefaultType = "question"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &QuestionIndex{index: index}, nil
}

// IndexAll adds qs in one batch, keyed by question id.
func (b *QuestionIndex) IndexAll(qs []models.StructuredQuestion) error {
	batch := b.index.NewBatch()
	for _, q := range qs {
		doc := map[string]any{
			"title":        q.Title,
			"questionText": q.QuestionText,
			"chapter":      q.Classification.Chapter,
			"topic":        q.Classification.Topic,
			"tags":         strings.Join(q.Classification.ConceptTags, " "),
			"difficulty":   q.Classification.Difficulty,
		}
		if err := batch.Index(q.ID, doc); err != nil {
			return fmt.Errorf("index %s: %w", q.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over every text field, boosting title matches. With
// fuzzy set, each term also matches within the given edit distance.
func (b *QuestionIndex) Search(query string, limit int, fuzziness int) ([]Hit, error) {
	var body, title blevequery.Query
	if fuzziness > 0 {
		body = buildFuzzyQuery(query, fuzziness, "")
		title = buildFuzzyQuery(query, fuzziness, "title")
	} else {
		body = bleve.NewMatchQuery(query)
		mq := bleve.NewMatchQuery(query)
		mq.SetField("title")
		title = mq
	}
	if bq, ok := title.(blevequery.BoostableQuery); ok {
		bq.SetBoost(titleBoost)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(body, title))
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed questions.
func (b *QuestionIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the index.
func (b *QuestionIndex) Close() error {
	return b.index.Close()
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs one FuzzyQuery per term. An empty field searches all fields.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}
