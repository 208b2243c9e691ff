package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ibebio/herb-transcribe/internal/orientation"
	"github.com/ibebio/herb-transcribe/internal/state"
)

// Artifacts are the files written for a completed item.
type Artifacts struct {
	Transcription string
	Orientated    string
	Processed     string
	Marker        string
}

// Paths lists the non-empty artifact paths in write order.
func (a Artifacts) Paths() []string {
	var paths []string
	for _, p := range []string{a.Transcription, a.Orientated, a.Processed, a.Marker} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Outcome is the terminal result of processing one item.
type Outcome struct {
	Item        Item
	Status      state.Status
	Orientation orientation.Orientation
	Identifier  string
	Score       int
	Artifacts   Artifacts
	// Reason is a short human-readable explanation for skipped items.
	Reason   string
	Err      error
	Duration time.Duration
}

// Summary collects the outcomes of a run.
type Summary struct {
	RunID      string
	InputDir   string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status state.Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Err returns the joined artifact write failures of the run, or nil.
// Skipped items never make a run fail.
func (s *Summary) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Status == state.StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %w", o.Item.BaseName, o.Err))
		}
	}
	return errors.Join(errs...)
}
