// Package export flattens stored transcriptions into tabular files.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/ibebio/herb-transcribe/internal/identifier"
	"github.com/ibebio/herb-transcribe/internal/models"
)

// Row is one transcription flattened into columns.
type Row struct {
	BaseName              string `parquet:"base_name" json:"base_name"`
	PlantID               string `parquet:"plant_id" json:"plant_id"`
	District              string `parquet:"district" json:"district"`
	GridReference         string `parquet:"grid_reference" json:"grid_reference"`
	Date                  string `parquet:"date" json:"date"`
	Altitude              string `parquet:"altitude" json:"altitude"`
	CollectorName         string `parquet:"collector_name" json:"collector_name"`
	CollectorNumber       string `parquet:"collector_number" json:"collector_number"`
	Name                  string `parquet:"name" json:"name"`
	Description           string `parquet:"description" json:"description"`
	Habitat               string `parquet:"habitat" json:"habitat"`
	GeographicInformation string `parquet:"geographic_information" json:"geographic_information"`
	FloweringState        string `parquet:"flowering_state" json:"flowering_state"`
	Phenotype             string `parquet:"phenotype" json:"phenotype"`
	ImagePath             string `parquet:"image_path" json:"image_path"`
	SourceFile            string `parquet:"source_file" json:"source_file"`
}

// NewRow flattens record. sourceFile is the transcription file it was read
// from, named <base>.<plant_id>.json.
func NewRow(sourceFile string, record *models.Record) Row {
	label := record.Label
	meta := record.Metadata
	plantID := record.PlantID()

	return Row{
		BaseName:              identifier.BaseName(strings.TrimSuffix(filepath.Base(sourceFile), ".json"), plantID),
		PlantID:               plantID,
		District:              label[models.LabelDistrict],
		GridReference:         label[models.LabelGridReference],
		Date:                  label[models.LabelDate],
		Altitude:              label[models.LabelAltitude],
		CollectorName:         label[models.LabelCollectorName],
		CollectorNumber:       label[models.LabelCollectorNumber],
		Name:                  label[models.LabelName],
		Description:           label[models.LabelDescription],
		Habitat:               meta[models.MetaHabitat],
		GeographicInformation: meta[models.MetaGeographicInformation],
		FloweringState:        meta[models.MetaFloweringState],
		Phenotype:             meta[models.MetaPhenotype],
		ImagePath:             record.ImagePath,
		SourceFile:            sourceFile,
	}
}

// Collect reads every transcription JSON in dir, sorted by file name.
// Files that cannot be parsed are logged and left out.
func Collect(dir string) ([]Row, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list transcriptions: %w", err)
	}
	sort.Strings(matches)

	rows := make([]Row, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var record models.Record
		if err := json.Unmarshal(data, &record); err != nil {
			slog.Warn("Skipping unreadable transcription", "path", path, "error", err)
			continue
		}
		rows = append(rows, NewRow(path, &record))
	}
	return rows, nil
}

// Write exports rows to output in the given format (parquet or jsonl).
func Write(rows []Row, output, format string) error {
	switch strings.ToLower(format) {
	case "parquet":
		return writeParquet(rows, output)
	case "jsonl":
		return writeJSONL(rows, output)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: parquet, jsonl)", format)
	}
}

func writeParquet(rows []Row, output string) error {
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

func writeJSONL(rows []Row, output string) error {
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create jsonl file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write jsonl row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush jsonl file: %w", err)
	}
	return file.Close()
}

// ReadParquet loads rows written by Write.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err != nil {
			break
		}
	}
	slog.Debug("Finished reading parquet file", "rows", len(rows))
	return rows, nil
}
