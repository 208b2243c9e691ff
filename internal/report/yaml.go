// Package report renders run summaries as YAML files and terminal tables.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ibebio/herb-transcribe/internal/pipeline"
	"github.com/ibebio/herb-transcribe/internal/state"
)

// RunConfig is the configuration section of the run report.
type RunConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	InputDir    string `yaml:"inputdir"`
	Override    bool   `yaml:"override"`
	Concurrency int    `yaml:"concurrency"`
}

// Counts holds the number of items per terminal status.
type Counts struct {
	Total     int `yaml:"total"`
	Processed int `yaml:"processed"`
	Skipped   int `yaml:"skipped"`
	Failed    int `yaml:"failed"`
}

// ItemResult is one item of the run report.
type ItemResult struct {
	BaseName      string `yaml:"basename"`
	Source        string `yaml:"source"`
	Status        string `yaml:"status"`
	Orientation   string `yaml:"orientation,omitempty"`
	PlantID       string `yaml:"plantid,omitempty"`
	Score         int    `yaml:"score,omitempty"`
	Transcription string `yaml:"transcription,omitempty"`
	Orientated    string `yaml:"orientated,omitempty"`
	Processed     string `yaml:"processed,omitempty"`
	Reason        string `yaml:"reason,omitempty"`
	DurationMS    int64  `yaml:"durationms"`
}

// RunReport is the complete YAML document written after a run.
type RunReport struct {
	RunID      string       `yaml:"runid"`
	StartedAt  string       `yaml:"startedat"`
	FinishedAt string       `yaml:"finishedat"`
	Config     RunConfig    `yaml:"config"`
	Counts     Counts       `yaml:"counts"`
	Items      []ItemResult `yaml:"items"`
}

// Build converts a run summary into a report.
func Build(summary *pipeline.Summary, cfg RunConfig) *RunReport {
	r := &RunReport{
		RunID:      summary.RunID,
		StartedAt:  summary.StartedAt.Format(time.RFC3339),
		FinishedAt: summary.FinishedAt.Format(time.RFC3339),
		Config:     cfg,
		Counts: Counts{
			Total:     len(summary.Outcomes),
			Processed: summary.Count(state.StatusDone),
			Skipped:   summary.Count(state.StatusSkipped),
			Failed:    summary.Count(state.StatusFailed),
		},
		Items: make([]ItemResult, 0, len(summary.Outcomes)),
	}
	if r.Config.InputDir == "" {
		r.Config.InputDir = summary.InputDir
	}

	for _, o := range summary.Outcomes {
		r.Items = append(r.Items, ItemResult{
			BaseName:      o.Item.BaseName,
			Source:        o.Item.Path,
			Status:        string(o.Status),
			Orientation:   string(o.Orientation),
			PlantID:       o.Identifier,
			Score:         o.Score,
			Transcription: o.Artifacts.Transcription,
			Orientated:    o.Artifacts.Orientated,
			Processed:     o.Artifacts.Processed,
			Reason:        o.Reason,
			DurationMS:    o.Duration.Milliseconds(),
		})
	}
	return r
}

// SaveYAML writes the report to path, creating its directory.
func SaveYAML(r *RunReport, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// LoadYAML reads a report written by SaveYAML.
func LoadYAML(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
