package transcription

import (
	"errors"
	"testing"

	"github.com/ibebio/herb-transcribe/internal/models"
)

const cleanPayload = `{
  "label": {"district": "Mutare", "plant_id": "SRGH-123", "Date": ""},
  "extracted_metadata": {"Habitat": "riverine forest", "Flowering state": ""}
}`

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "plain json", response: cleanPayload},
		{name: "fenced json", response: "```json\n" + cleanPayload + "\n```"},
		{name: "fence without language", response: "```\n" + cleanPayload + "```"},
		{name: "prose around object", response: "Here is the transcription:\n" + cleanPayload + "\nLet me know if you need more."},
		{name: "fence inside prose", response: "Sure!\n```json\n" + cleanPayload + "\n```\nDone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseRecord(tt.response)
			if err != nil {
				t.Fatalf("ParseRecord failed: %v", err)
			}
			if record.Label[models.LabelDistrict] != "Mutare" {
				t.Errorf("Expected district Mutare, got %q", record.Label[models.LabelDistrict])
			}
			if record.PlantID() != "SRGH-123" {
				t.Errorf("Expected plant id SRGH-123, got %q", record.PlantID())
			}
			if record.Metadata[models.MetaHabitat] != "riverine forest" {
				t.Errorf("Unexpected habitat %q", record.Metadata[models.MetaHabitat])
			}
		})
	}
}

func TestParseRecordTolerantValues(t *testing.T) {
	record, err := ParseRecord(`{"label": {"Altitude": 1234, "collector_number": null, "name": "Aloe"}, "extracted_metadata": {"Phenotype": true}}`)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if record.Label[models.LabelAltitude] != "1234" {
		t.Errorf("Expected numeric altitude as text, got %q", record.Label[models.LabelAltitude])
	}
	if v, ok := record.Label[models.LabelCollectorNumber]; !ok || v != "" {
		t.Errorf("Expected null to become empty string, got %q (present=%v)", v, ok)
	}
	if record.Metadata[models.MetaPhenotype] != "true" {
		t.Errorf("Expected bool as text, got %q", record.Metadata[models.MetaPhenotype])
	}
}

func TestParseRecordMissingMetadata(t *testing.T) {
	record, err := ParseRecord(`{"label": {"name": "Aloe"}}`)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if record.Metadata == nil {
		t.Error("Expected empty metadata group")
	}
}

func TestParseRecordIgnoresModelImagePath(t *testing.T) {
	record, err := ParseRecord(`{"label": {}, "extracted_metadata": {}, "image_path": "/etc/passwd"}`)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if record.ImagePath != "" {
		t.Errorf("Expected image path to be cleared, got %q", record.ImagePath)
	}
}

func TestParseRecordMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "empty", response: "   "},
		{name: "no json", response: "I cannot read this label."},
		{name: "truncated", response: "```json\n{\"label\": {\"name\": \"Aloe\"\n```"},
		{name: "missing label group", response: `{"extracted_metadata": {}}`},
		{name: "nested value", response: `{"label": {"name": {"genus": "Aloe"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.response)
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("Expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}
