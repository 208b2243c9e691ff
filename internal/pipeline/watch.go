package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch processes images that appear in inputDir until ctx is cancelled.
// A file is picked up once it has not changed for the configured watch
// delay. The returned summary covers the images handled while watching.
func (c *Controller) Watch(ctx context.Context, inputDir string) (*Summary, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("provided path %s: %w", inputDir, ErrNotDirectory)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(inputDir); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", inputDir, err)
	}

	lock, err := c.lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	summary := c.beginRun(ctx, inputDir)
	defer c.finishRun(summary)
	slog.Info("Watching for new images", "run_id", summary.RunID, "input", inputDir, "delay", c.cfg.WatchDelay)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(c.cfg.WatchDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return summary, nil
		case ev, ok := <-w.Events:
			if !ok {
				return summary, nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && IsSupported(ev.Name) {
				pending[ev.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return summary, nil
			}
			slog.Warn("Watch error", "error", err)
		case <-ticker.C:
			for _, path := range stablePaths(pending, c.cfg.WatchDelay) {
				delete(pending, path)
				if !fileExists(path) {
					continue
				}
				summary.Outcomes = append(summary.Outcomes, c.ProcessItem(ctx, NewItem(path)))
				if ctx.Err() != nil {
					return summary, nil
				}
			}
		}
	}
}

// stablePaths returns the pending paths untouched for at least delay, in
// name order.
func stablePaths(pending map[string]time.Time, delay time.Duration) []string {
	now := time.Now()
	var ready []string
	for path, seen := range pending {
		if now.Sub(seen) >= delay {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}
