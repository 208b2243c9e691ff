package evaluation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ibebio/herb-transcribe/internal/identifier"
	"github.com/ibebio/herb-transcribe/internal/models"
)

// Result is the evaluation of one transcription.
type Result struct {
	BaseName      string      `yaml:"basename"`
	Transcription string      `yaml:"transcription,omitempty"`
	Reference     string      `yaml:"reference"`
	Comparison    *Comparison `yaml:"comparison,omitempty"`
	Error         string      `yaml:"error,omitempty"`
}

// FieldStats summarizes one field across all evaluated transcriptions.
type FieldStats struct {
	ExactMatches  int     `yaml:"exactmatches"`
	FuzzyMatches  int     `yaml:"fuzzymatches"`
	NoMatches     int     `yaml:"nomatches"`
	MissingFields int     `yaml:"missingfields"`
	AverageScore  float64 `yaml:"averagescore"`
	scores        []float64
}

// Aggregate collects the results of an evaluation run.
type Aggregate struct {
	EvaluatedAt     string                `yaml:"evaluatedat"`
	TotalRecords    int                   `yaml:"totalrecords"`
	SuccessCount    int                   `yaml:"successcount"`
	FailureCount    int                   `yaml:"failurecount"`
	OverallAccuracy float64               `yaml:"overallaccuracy"`
	Fields          map[string]FieldStats `yaml:"fields"`
	Results         []Result              `yaml:"results"`
}

// Evaluate compares every reference record in referenceDir with the
// transcription of the same image base name in transcriptionsDir.
func Evaluate(referenceDir, transcriptionsDir string) (*Aggregate, error) {
	references, err := loadRecords(referenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	if len(references) == 0 {
		return nil, fmt.Errorf("no reference records found in %s", referenceDir)
	}
	transcriptions, err := loadRecords(transcriptionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcriptions: %w", err)
	}

	bases := make([]string, 0, len(references))
	for base := range references {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	results := make([]Result, 0, len(bases))
	for _, base := range bases {
		ref := references[base]
		result := Result{BaseName: base, Reference: ref.path}

		gen, ok := transcriptions[base]
		if !ok {
			result.Error = "no transcription"
			results = append(results, result)
			continue
		}
		result.Transcription = gen.path
		result.Comparison = CompareRecords(ref.record, gen.record)
		slog.Debug("Evaluated transcription", "base_name", base, "score", result.Comparison.OverallScore)
		results = append(results, result)
	}

	return AggregateResults(results), nil
}

// AggregateResults computes per-field statistics over results.
func AggregateResults(results []Result) *Aggregate {
	agg := &Aggregate{
		EvaluatedAt:  time.Now().Format(time.RFC3339),
		TotalRecords: len(results),
		Fields:       make(map[string]FieldStats),
		Results:      results,
	}

	total := 0.0
	for _, r := range results {
		if r.Error != "" || r.Comparison == nil {
			agg.FailureCount++
			continue
		}
		agg.SuccessCount++
		total += r.Comparison.OverallScore

		for key, match := range r.Comparison.Fields {
			stats := agg.Fields[key]
			aggregateFieldStats(&stats, match)
			agg.Fields[key] = stats
		}
	}

	for key, stats := range agg.Fields {
		stats.AverageScore = calculateAverage(stats.scores)
		agg.Fields[key] = stats
	}
	if agg.SuccessCount > 0 {
		agg.OverallAccuracy = total / float64(agg.SuccessCount)
	}
	return agg
}

func aggregateFieldStats(stats *FieldStats, match FieldMatch) {
	if match.Method == MethodBothMissing {
		return
	}
	stats.scores = append(stats.scores, match.Score)

	switch match.Method {
	case MethodExact:
		stats.ExactMatches++
	case MethodFuzzyHigh, MethodFuzzyMedium, MethodSubstring:
		stats.FuzzyMatches++
	case MethodNoMatch:
		stats.NoMatches++
	case MethodActualMissing, MethodExpectedMissing:
		stats.MissingFields++
	}
}

func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}

// FieldNames returns the evaluated field keys in a stable order.
func (a *Aggregate) FieldNames() []string {
	names := make([]string, 0, len(a.Fields))
	for name := range a.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveYAML writes the aggregate to path.
func (a *Aggregate) SaveYAML(path string) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

type loadedRecord struct {
	path   string
	record *models.Record
}

// loadRecords reads every JSON record in dir keyed by image base name.
func loadRecords(dir string) (map[string]loadedRecord, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	records := make(map[string]loadedRecord, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var record models.Record
		if err := json.Unmarshal(data, &record); err != nil {
			slog.Warn("Skipping unreadable record", "path", path, "error", err)
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(path), ".json")
		base := identifier.BaseName(stem, identifier.Sanitize(record.PlantID()))
		records[base] = loadedRecord{path: path, record: &record}
	}
	return records, nil
}
