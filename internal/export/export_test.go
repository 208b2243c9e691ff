package export

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ibebio/herb-transcribe/internal/models"
)

func writeTranscription(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func TestNewRow(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		plantID  string
		expected string
	}{
		{"base with identifier", "/t/IMG_1.SRGH_6_B.json", "SRGH_6_B", "IMG_1"},
		{"base with dots", "/t/scan.2024.SRGH_1.json", "SRGH_1", "scan.2024"},
		{"empty identifier", "/t/IMG_2.json", "", "IMG_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &models.Record{
				Label:    models.Fields{models.LabelPlantID: tt.plantID, models.LabelDistrict: "Harare"},
				Metadata: models.Fields{models.MetaHabitat: "grassland"},
			}
			row := NewRow(tt.file, record)
			if row.BaseName != tt.expected {
				t.Errorf("Expected base %s, got %s", tt.expected, row.BaseName)
			}
			if row.District != "Harare" || row.Habitat != "grassland" {
				t.Errorf("Expected flattened fields, got %+v", row)
			}
		})
	}
}

func TestCollectAndWriteParquet(t *testing.T) {
	dir := t.TempDir()
	writeTranscription(t, dir, "IMG_2.SRGH_2.json", `{"label": {"plant_id": "SRGH_2", "Altitude": 1500}, "extracted_metadata": {}}`)
	writeTranscription(t, dir, "IMG_1.SRGH_1.json", `{"label": {"plant_id": "SRGH_1", "name": "Aloe"}, "extracted_metadata": {"Phenotype": "succulent"}, "image_path": "p/IMG_1_cw.jpg"}`)
	writeTranscription(t, dir, "broken.json", `not json`)
	writeTranscription(t, dir, "notes.txt", `ignored`)

	rows, err := Collect(dir)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].BaseName != "IMG_1" || rows[1].Altitude != "1500" {
		t.Errorf("Unexpected rows: %+v", rows)
	}

	output := filepath.Join(t.TempDir(), "out.parquet")
	if err := Write(rows, output, "parquet"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := ReadParquet(output)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 rows read back, got %d", len(loaded))
	}
	if loaded[0].Name != "Aloe" || loaded[0].Phenotype != "succulent" || loaded[0].ImagePath != "p/IMG_1_cw.jpg" {
		t.Errorf("Unexpected first row: %+v", loaded[0])
	}
}

func TestWriteJSONL(t *testing.T) {
	rows := []Row{{BaseName: "IMG_1", PlantID: "SRGH_1"}, {BaseName: "IMG_2"}}
	output := filepath.Join(t.TempDir(), "out.jsonl")
	if err := Write(rows, output, "jsonl"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var got []Row
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var row Row
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("invalid jsonl line: %v", err)
		}
		got = append(got, row)
	}
	if len(got) != 2 || got[0].PlantID != "SRGH_1" {
		t.Errorf("Unexpected rows: %+v", got)
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	if err := Write(nil, filepath.Join(t.TempDir(), "out.csv"), "csv"); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}
