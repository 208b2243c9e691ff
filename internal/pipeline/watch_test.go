package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibebio/herb-transcribe/internal/models"
	"github.com/ibebio/herb-transcribe/internal/state"
)

func TestWatchProcessesNewImages(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.WatchDelay = 50 * time.Millisecond

	ext := &fakeExtractor{}
	ext.set("NEW_original", models.Record{Label: models.Fields{models.LabelPlantID: "SRGH 7"}})
	c := env.controller(t, ext)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type result struct {
		summary *Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Watch(ctx, env.input)
		done <- result{s, err}
	}()

	marker := c.MarkerPath("NEW")
	time.Sleep(100 * time.Millisecond)
	writeImage(t, env.input, "NEW.jpg", 20, 40)

	deadline := time.Now().Add(5 * time.Second)
	for !fileExists(marker) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	res := <-done

	if res.err != nil {
		t.Fatalf("Watch failed: %v", res.err)
	}
	if !fileExists(marker) {
		t.Fatal("Expected watched image to be processed")
	}
	if res.summary.Count(state.StatusDone) != 1 {
		t.Errorf("Expected 1 processed item in watch summary, got %+v", res.summary.Outcomes)
	}
	if !fileExists(filepath.Join(env.cfg.TranscriptionsDir, "NEW.SRGH_7.json")) {
		t.Error("Expected transcription for watched image")
	}
}
