package state

import "time"

// Status represents the lifecycle of one image item.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPreprocessing Status = "preprocessing"
	StatusExtracting    Status = "extracting"
	StatusSelecting     Status = "selecting"
	StatusPersisting    Status = "persisting"
	StatusDone          Status = "done"
	StatusSkipped       Status = "skipped"
	StatusFailed        Status = "failed"
)

// IsTerminal reports whether no further transition is expected in a run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// Item is the journal entry for one base name.
type Item struct {
	BaseName          string
	SourcePath        string
	Status            Status
	RunID             string
	Orientation       string
	Identifier        string
	Score             int
	TranscriptionPath string
	OrientatedPath    string
	ProcessedPath     string
	MarkerPath        string
	Message           string
	UpdatedAt         time.Time
}

// ArtifactPaths returns the three artifact paths and the marker path that
// are set on a completed item.
func (i *Item) ArtifactPaths() []string {
	var paths []string
	for _, p := range []string{i.TranscriptionPath, i.OrientatedPath, i.ProcessedPath, i.MarkerPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Run is the journal entry for one pipeline run.
type Run struct {
	ID         string
	InputDir   string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Skipped    int
	Failed     int
}
