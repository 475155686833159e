package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestProgress_zeroState(t *testing.T) {
	p := NewProgress()
	if p.LastCompletedBatch != -1 || p.NextQuestionIndex != 0 || len(p.ProcessedIDs) != 0 {
		t.Errorf("unexpected zero state: %+v", p)
	}
}

func TestProgress_jsonShape(t *testing.T) {
	p := NewProgress()
	p.LastCompletedBatch = 2
	p.NextQuestionIndex = 30
	p.MarkProcessed("neet_2024_phy_010")
	p.MarkProcessed("neet_2024_phy_002")

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"last_completed_batch":2,"next_question_index":30,"processed_question_ids":["neet_2024_phy_002","neet_2024_phy_010"]}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}

	var back ProcessingProgress
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Processed("neet_2024_phy_002") || back.Processed("neet_2024_phy_003") {
		t.Errorf("processed set not restored: %v", back.ProcessedIDs)
	}
}

func TestProgress_missingFieldsDefault(t *testing.T) {
	var p ProcessingProgress
	if err := json.NewDecoder(strings.NewReader(`{}`)).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.LastCompletedBatch != -1 {
		t.Errorf("LastCompletedBatch = %d, want -1", p.LastCompletedBatch)
	}
}

func TestProgress_cloneIsIndependent(t *testing.T) {
	p := NewProgress()
	p.MarkProcessed("a")
	c := p.Clone()
	c.MarkProcessed("b")
	if p.Processed("b") {
		t.Error("clone shares processed set with original")
	}
}

func TestOptionFromDigit(t *testing.T) {
	for d, want := range map[int]OptionID{1: OptionA, 2: OptionB, 3: OptionC, 4: OptionD} {
		got, ok := OptionFromDigit(d)
		if !ok || got != want {
			t.Errorf("OptionFromDigit(%d) = %q, %v", d, got, ok)
		}
	}
	for _, d := range []int{0, 5, 9} {
		if _, ok := OptionFromDigit(d); ok {
			t.Errorf("OptionFromDigit(%d) should be invalid", d)
		}
	}
}
