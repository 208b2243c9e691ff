package selection

import (
	"fmt"
	"testing"

	"github.com/ibebio/herb-transcribe/internal/models"
)

// recordWithScore builds a record with n filled fields, split across both groups.
func recordWithScore(n int, id string) *models.Record {
	r := &models.Record{Label: models.Fields{}, Metadata: models.Fields{}}
	r.Label[models.LabelPlantID] = id
	for i := 1; i < n; i++ {
		if i%2 == 0 {
			r.Label[fmt.Sprintf("label_%d", i)] = "x"
		} else {
			r.Metadata[fmt.Sprintf("meta_%d", i)] = "x"
		}
	}
	r.Label["empty"] = ""
	r.Metadata["also_empty"] = ""
	return r
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		record   *models.Record
		expected int
	}{
		{name: "nil record", record: nil, expected: 0},
		{name: "empty groups", record: &models.Record{}, expected: 0},
		{name: "counts both groups", record: recordWithScore(5, "SRGH1"), expected: 5},
		{
			name: "empty strings are not counted",
			record: &models.Record{
				Label:    models.Fields{"district": "Mutare", "Date": ""},
				Metadata: models.Fields{"Habitat": "", "Phenotype": "tall"},
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.record); got != tt.expected {
				t.Errorf("Expected score %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSelectHigherScoreWinsRegardlessOfOrder(t *testing.T) {
	five := recordWithScore(5, "five")
	three := recordWithScore(3, "three")

	orders := [][]Scored{
		{NewScored(0, five), NewScored(1, three)},
		{NewScored(0, three), NewScored(1, five)},
		{NewScored(1, three), NewScored(0, five)},
	}
	for i, candidates := range orders {
		best, ok := Select(candidates)
		if !ok {
			t.Fatalf("order %d: expected a selection", i)
		}
		if best.Record.PlantID() != "five" {
			t.Errorf("order %d: expected record scoring 5, got %s (score %d)", i, best.Record.PlantID(), best.Score)
		}
	}
}

func TestSelectTieGoesToFirstCandidate(t *testing.T) {
	first := recordWithScore(4, "first")
	second := recordWithScore(4, "second")

	best, ok := Select([]Scored{NewScored(0, first), NewScored(1, second)})
	if !ok || best.Record.PlantID() != "first" {
		t.Fatalf("Expected first candidate to win tie, got %+v", best)
	}

	// Generation order decides, not slice order.
	best, ok = Select([]Scored{NewScored(1, second), NewScored(0, first)})
	if !ok || best.Index != 0 {
		t.Fatalf("Expected candidate index 0 to win tie, got index %d", best.Index)
	}
}

func TestSelectEmpty(t *testing.T) {
	if _, ok := Select(nil); ok {
		t.Error("Expected no selection for empty input")
	}
	if _, ok := Select([]Scored{{Index: 0}}); ok {
		t.Error("Expected no selection when every record is nil")
	}
}

func TestSelectSingle(t *testing.T) {
	only := recordWithScore(2, "only")
	best, ok := Select([]Scored{NewScored(1, only)})
	if !ok || best.Index != 1 || best.Score != 2 {
		t.Errorf("Unexpected selection: %+v", best)
	}
}
