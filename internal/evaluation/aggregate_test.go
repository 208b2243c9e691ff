package evaluation

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	root := t.TempDir()
	refs := filepath.Join(root, "references")
	gens := filepath.Join(root, "transcriptions")

	writeRecord(t, refs, "IMG_1.json", `{"label": {"district": "Harare", "plant_id": "SRGH 1"}, "extracted_metadata": {}}`)
	writeRecord(t, refs, "IMG_2.json", `{"label": {"district": "Mutare", "plant_id": "SRGH 2"}, "extracted_metadata": {}}`)
	writeRecord(t, gens, "IMG_1.SRGH_1.json", `{"label": {"district": "Harare", "plant_id": "SRGH_1"}, "extracted_metadata": {}}`)

	agg, err := Evaluate(refs, gens)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if agg.TotalRecords != 2 || agg.SuccessCount != 1 || agg.FailureCount != 1 {
		t.Errorf("Unexpected counts: total=%d success=%d failure=%d", agg.TotalRecords, agg.SuccessCount, agg.FailureCount)
	}
	if agg.Results[1].Error != "no transcription" {
		t.Errorf("Expected IMG_2 to lack a transcription, got %+v", agg.Results[1])
	}

	district := agg.Fields[FieldKey("label", "district")]
	if district.ExactMatches != 1 || district.AverageScore != 1.0 {
		t.Errorf("Unexpected district stats: %+v", district)
	}
	if agg.OverallAccuracy <= 0 {
		t.Errorf("Expected positive accuracy, got %.2f", agg.OverallAccuracy)
	}

	out := filepath.Join(root, "eval.yaml")
	if err := agg.SaveYAML(out); err != nil {
		t.Fatalf("SaveYAML failed: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("Expected YAML output, got %v", err)
	}
}

func TestEvaluateNoReferences(t *testing.T) {
	if _, err := Evaluate(t.TempDir(), t.TempDir()); err == nil {
		t.Error("Expected error for empty reference directory")
	}
}

func TestAggregateResultsSkipsBothMissing(t *testing.T) {
	results := []Result{
		{BaseName: "a", Comparison: &Comparison{
			OverallScore: 1,
			Fields: map[string]FieldMatch{
				"label.name":     {Method: MethodExact, Score: 1},
				"label.Altitude": {Method: MethodBothMissing, Score: 1},
			},
		}},
		{BaseName: "b", Error: "no transcription"},
	}

	agg := AggregateResults(results)
	if agg.Fields["label.Altitude"].ExactMatches != 0 {
		t.Error("Fields missing on both sides must not count as matches")
	}
	if agg.Fields["label.name"].ExactMatches != 1 {
		t.Errorf("Expected one exact name match, got %+v", agg.Fields["label.name"])
	}
	if agg.OverallAccuracy != 1 {
		t.Errorf("Expected overall accuracy 1, got %.2f", agg.OverallAccuracy)
	}
}
