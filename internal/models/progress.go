package models

import (
	"encoding/json"
	"sort"
	"time"
)

// ProcessingProgress is the durable checkpoint of a batch run.
type ProcessingProgress struct {
	LastCompletedBatch int
	NextQuestionIndex  int
	ProcessedIDs       map[string]struct{}
}

// NewProgress returns the zero state: no batch committed, nothing processed.
func NewProgress() *ProcessingProgress {
	return &ProcessingProgress{
		LastCompletedBatch: -1,
		ProcessedIDs:       make(map[string]struct{}),
	}
}

// Processed reports whether id has already been committed.
func (p *ProcessingProgress) Processed(id string) bool {
	_, ok := p.ProcessedIDs[id]
	return ok
}

// MarkProcessed adds id to the processed set.
func (p *ProcessingProgress) MarkProcessed(id string) {
	if p.ProcessedIDs == nil {
		p.ProcessedIDs = make(map[string]struct{})
	}
	p.ProcessedIDs[id] = struct{}{}
}

// Clone returns a deep copy.
func (p *ProcessingProgress) Clone() *ProcessingProgress {
	c := &ProcessingProgress{
		LastCompletedBatch: p.LastCompletedBatch,
		NextQuestionIndex:  p.NextQuestionIndex,
		ProcessedIDs:       make(map[string]struct{}, len(p.ProcessedIDs)),
	}
	for id := range p.ProcessedIDs {
		c.ProcessedIDs[id] = struct{}{}
	}
	return c
}

type progressJSON struct {
	LastCompletedBatch int      `json:"last_completed_batch"`
	NextQuestionIndex  int      `json:"next_question_index"`
	ProcessedIDs       []string `json:"processed_question_ids"`
}

// MarshalJSON writes the processed set as a sorted array.
func (p ProcessingProgress) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(p.ProcessedIDs))
	for id := range p.ProcessedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(progressJSON{
		LastCompletedBatch: p.LastCompletedBatch,
		NextQuestionIndex:  p.NextQuestionIndex,
		ProcessedIDs:       ids,
	})
}

// UnmarshalJSON reads the on-disk progress object.
func (p *ProcessingProgress) UnmarshalJSON(data []byte) error {
	raw := progressJSON{LastCompletedBatch: -1}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.LastCompletedBatch = raw.LastCompletedBatch
	p.NextQuestionIndex = raw.NextQuestionIndex
	p.ProcessedIDs = make(map[string]struct{}, len(raw.ProcessedIDs))
	for _, id := range raw.ProcessedIDs {
		p.ProcessedIDs[id] = struct{}{}
	}
	return nil
}

// FailureRecord is one entry of the append-only failure log.
type FailureRecord struct {
	QuestionNumber int       `json:"question_number"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
}
