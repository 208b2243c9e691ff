// Package pipeline drives label images through orientation, extraction,
// selection and persistence, keeping a completion marker per image so that
// interrupted runs can resume.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ibebio/herb-transcribe/internal/identifier"
	"github.com/ibebio/herb-transcribe/internal/orientation"
	"github.com/ibebio/herb-transcribe/internal/selection"
	"github.com/ibebio/herb-transcribe/internal/state"
	"github.com/ibebio/herb-transcribe/internal/storage"
	"github.com/ibebio/herb-transcribe/internal/transcription"
)

var (
	ErrPreprocess     = errors.New("image could not be preprocessed")
	ErrCandidateCount = errors.New("unexpected number of orientation candidates")
	ErrNoUsableRecord = errors.New("no usable transcription")
	ErrArtifactWrite  = errors.New("artifact write failed")
	ErrLocked         = errors.New("another run holds the output lock")
)

const (
	// MarkerDir is the subdirectory of the processed images root holding
	// completion markers.
	MarkerDir    = "processed"
	MarkerSuffix = ".processed"
	LockFileName = ".herb-transcribe.lock"

	expectedCandidates = 2
	defaultWatchDelay  = 500 * time.Millisecond
)

// Config holds the output layout and processing behaviour.
type Config struct {
	ProcessedImagesDir     string
	TranscriptionsDir      string
	OrientatedImagesDir    string
	ProcessedOrientatedDir string
	Override               bool
	Concurrency            int
	WatchDelay             time.Duration
}

// CandidateGenerator produces the orientation candidates of an image.
type CandidateGenerator interface {
	Generate(path string) ([]orientation.Candidate, error)
}

// Controller processes image items and owns their output artifacts.
type Controller struct {
	cfg       Config
	gen       CandidateGenerator
	extractor transcription.Extractor
	journal   *state.Store
	locks     *storage.ItemLocks
	writer    artifactWriter
	now       func() time.Time
	runID     string
}

// Option customizes a controller.
type Option func(*Controller)

// WithJournal records item transitions and artifact paths in store.
func WithJournal(store *state.Store) Option {
	return func(c *Controller) {
		c.journal = store
	}
}

// WithClock overrides the clock used for marker timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func withWriter(w artifactWriter) Option {
	return func(c *Controller) {
		c.writer = w
	}
}

// New creates a controller and the output directories it writes to.
func New(cfg Config, gen CandidateGenerator, extractor transcription.Extractor, opts ...Option) (*Controller, error) {
	if gen == nil || extractor == nil {
		return nil, errors.New("pipeline requires a candidate generator and an extractor")
	}
	if cfg.ProcessedImagesDir == "" || cfg.TranscriptionsDir == "" || cfg.OrientatedImagesDir == "" {
		return nil, errors.New("output directories must be set")
	}
	if cfg.ProcessedOrientatedDir == "" {
		cfg.ProcessedOrientatedDir = strings.TrimRight(cfg.ProcessedImagesDir, string(filepath.Separator)) + "_orientated"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.WatchDelay <= 0 {
		cfg.WatchDelay = defaultWatchDelay
	}

	c := &Controller{
		cfg:       cfg,
		gen:       gen,
		extractor: extractor,
		locks:     storage.New(),
		writer:    atomicWriter{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, dir := range []string{
		cfg.ProcessedImagesDir,
		filepath.Join(cfg.ProcessedImagesDir, MarkerDir),
		cfg.TranscriptionsDir,
		cfg.OrientatedImagesDir,
		cfg.ProcessedOrientatedDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// MarkerPath returns the completion marker location for baseName.
func (c *Controller) MarkerPath(baseName string) string {
	return filepath.Join(c.cfg.ProcessedImagesDir, MarkerDir, baseName+MarkerSuffix)
}

func (c *Controller) lock() (*flock.Flock, error) {
	lock := flock.New(filepath.Join(c.cfg.ProcessedImagesDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}

func (c *Controller) beginRun(ctx context.Context, inputDir string) *Summary {
	c.runID = uuid.NewString()
	summary := &Summary{
		RunID:     c.runID,
		InputDir:  inputDir,
		StartedAt: c.now(),
	}
	if c.journal != nil {
		if err := c.journal.BeginRun(ctx, c.runID, inputDir); err != nil {
			slog.Warn("Failed to record run start", "run_id", c.runID, "error", err)
		}
	}
	return summary
}

func (c *Controller) finishRun(summary *Summary) {
	summary.FinishedAt = c.now()
	if c.journal != nil {
		// The run context may already be cancelled; the counters are still
		// worth keeping.
		err := c.journal.FinishRun(context.Background(), summary.RunID,
			summary.Count(state.StatusDone), summary.Count(state.StatusSkipped), summary.Count(state.StatusFailed))
		if err != nil {
			slog.Warn("Failed to record run end", "run_id", summary.RunID, "error", err)
		}
	}
	slog.Info("Run finished",
		"run_id", summary.RunID,
		"processed", summary.Count(state.StatusDone),
		"skipped", summary.Count(state.StatusSkipped),
		"failed", summary.Count(state.StatusFailed),
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
}

// Run processes every supported image in inputDir. Per-item failures are
// reported in the summary and never stop the run.
func (c *Controller) Run(ctx context.Context, inputDir string) (*Summary, error) {
	items, err := ListImages(inputDir)
	if err != nil {
		return nil, err
	}

	lock, err := c.lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	summary := c.beginRun(ctx, inputDir)
	slog.Info("Starting run", "run_id", summary.RunID, "input", inputDir, "items", len(items), "concurrency", c.cfg.Concurrency, "override", c.cfg.Override)

	summary.Outcomes = c.processAll(ctx, items)
	c.finishRun(summary)
	return summary, nil
}

func (c *Controller) processAll(ctx context.Context, items []Item) []Outcome {
	outcomes := make([]Outcome, len(items))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.cfg.Concurrency)
	started := 0

dispatch:
	for i, item := range items {
		select {
		case <-ctx.Done():
			slog.Info("Run interrupted", "remaining", len(items)-i)
			break dispatch
		case semaphore <- struct{}{}:
		}
		started++

		wg.Add(1)
		go func(idx int, item Item) {
			defer wg.Done()
			defer func() { <-semaphore }()

			slog.Debug("Processing item", "base_name", item.BaseName, "progress", fmt.Sprintf("%d/%d", idx+1, len(items)))
			outcomes[idx] = c.ProcessItem(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return outcomes[:started]
}

// ProcessItem takes one item from pending to a terminal state.
func (c *Controller) ProcessItem(ctx context.Context, item Item) Outcome {
	start := time.Now()
	out := c.processItem(ctx, item)
	out.Duration = time.Since(start)
	return out
}

func (c *Controller) processItem(ctx context.Context, item Item) Outcome {
	out := Outcome{Item: item, Status: state.StatusPending}
	logger := slog.With("base_name", item.BaseName)

	unlock := c.locks.Lock(item.BaseName)
	defer unlock()

	if !c.cfg.Override && fileExists(c.MarkerPath(item.BaseName)) {
		logger.Info("Skipping already processed image", "path", item.Path)
		out.Status = state.StatusSkipped
		out.Reason = "already processed"
		return out
	}
	if err := ctx.Err(); err != nil {
		return c.skip(ctx, out, err)
	}

	previous := c.previousCompletion(ctx, item.BaseName)

	logger.Info("Processing image", "path", item.Path)
	c.transition(ctx, item, state.StatusPreprocessing, "")
	candidates, err := c.gen.Generate(item.Path)
	if err != nil {
		return c.skip(ctx, out, fmt.Errorf("%w: %v", ErrPreprocess, err))
	}
	if len(candidates) != expectedCandidates {
		return c.skip(ctx, out, fmt.Errorf("%w: got %d, want %d", ErrCandidateCount, len(candidates), expectedCandidates))
	}

	c.transition(ctx, item, state.StatusExtracting, "")
	scored := make([]selection.Scored, 0, len(candidates))
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		logger.Info("Transcribing candidate", "orientation", candidate.Orientation, "path", candidate.CroppedPath)
		record, err := c.extractor.Extract(ctx, candidate.CroppedPath)
		if err != nil {
			logger.Warn("Candidate extraction failed", "orientation", candidate.Orientation, "error", err)
			continue
		}
		s := selection.NewScored(i, record)
		logger.Debug("Candidate scored", "orientation", candidate.Orientation, "score", s.Score)
		scored = append(scored, s)
	}
	if err := ctx.Err(); err != nil {
		return c.skip(ctx, out, err)
	}

	c.transition(ctx, item, state.StatusSelecting, "")
	best, ok := selection.Select(scored)
	if !ok {
		return c.skip(ctx, out, ErrNoUsableRecord)
	}
	winner := candidates[best.Index]

	id := identifier.Sanitize(best.Record.PlantID())
	best.Record.SetPlantID(id)
	stem := identifier.FileStem(item.BaseName, id)

	out.Orientation = winner.Orientation
	out.Identifier = id
	out.Score = best.Score
	logger.Info("Selected transcription", "orientation", winner.Orientation, "score", best.Score, "plant_id", id)

	c.transition(ctx, item, state.StatusPersisting, "")
	artifacts, err := c.persist(item, stem, winner, best.Record)
	if err != nil {
		logger.Error("Failed to persist artifacts", "error", err)
		out.Status = state.StatusFailed
		out.Err = err
		c.transition(ctx, item, state.StatusFailed, err.Error())
		return out
	}
	out.Artifacts = artifacts
	out.Status = state.StatusDone

	c.removeStale(previous, artifacts)
	if c.journal != nil {
		err := c.journal.Complete(context.WithoutCancel(ctx), &state.Item{
			BaseName:          item.BaseName,
			SourcePath:        item.Path,
			RunID:             c.runID,
			Orientation:       string(winner.Orientation),
			Identifier:        id,
			Score:             best.Score,
			TranscriptionPath: artifacts.Transcription,
			OrientatedPath:    artifacts.Orientated,
			ProcessedPath:     artifacts.Processed,
			MarkerPath:        artifacts.Marker,
		})
		if err != nil {
			logger.Warn("Failed to record completion", "error", err)
		}
	}
	logger.Info("Image processed", "marker", artifacts.Marker)
	return out
}

func (c *Controller) skip(ctx context.Context, out Outcome, err error) Outcome {
	slog.Warn("Skipping image", "base_name", out.Item.BaseName, "path", out.Item.Path, "error", err)
	out.Status = state.StatusSkipped
	out.Err = err
	out.Reason = err.Error()
	c.transition(ctx, out.Item, state.StatusSkipped, err.Error())
	return out
}

func (c *Controller) transition(ctx context.Context, item Item, status state.Status, message string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Transition(context.WithoutCancel(ctx), item.BaseName, item.Path, c.runID, status, message); err != nil {
		slog.Warn("Failed to record transition", "base_name", item.BaseName, "status", status, "error", err)
	}
}

// previousCompletion returns the journal entry of an earlier completion,
// used to clean up artifacts when an item is reprocessed.
func (c *Controller) previousCompletion(ctx context.Context, baseName string) *state.Item {
	if c.journal == nil || !c.cfg.Override {
		return nil
	}
	prev, err := c.journal.Get(ctx, baseName)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			slog.Warn("Failed to read journal entry", "base_name", baseName, "error", err)
		}
		return nil
	}
	if prev.MarkerPath == "" {
		return nil
	}
	return prev
}
