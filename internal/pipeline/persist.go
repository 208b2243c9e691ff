package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ibebio/herb-transcribe/internal/models"
	"github.com/ibebio/herb-transcribe/internal/orientation"
	"github.com/ibebio/herb-transcribe/internal/state"
)

const markerTimeLayout = "2006-01-02 15:04:05"

// artifactWriter writes artifacts so that a reader never observes a
// partially written file.
type artifactWriter interface {
	WriteFile(path string, data []byte) error
	CopyFile(src, dst string) error
}

// atomicWriter writes to a temporary file in the destination directory and
// renames it into place.
type atomicWriter struct{}

func (atomicWriter) WriteFile(path string, data []byte) error {
	return writeAtomic(path, bytes.NewReader(data))
}

func (atomicWriter) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	return writeAtomic(dst, in)
}

func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}

// encodeRecord renders the record the way it is stored on disk: indented
// with four spaces, non-ASCII text kept verbatim.
func encodeRecord(record *models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// persist writes the three artifacts and then the marker. The marker is
// only written when every artifact write succeeded.
func (c *Controller) persist(item Item, stem string, winner orientation.Candidate, record *models.Record) (Artifacts, error) {
	ext := filepath.Ext(winner.FullSizePath)
	artifacts := Artifacts{
		Transcription: filepath.Join(c.cfg.TranscriptionsDir, stem+".json"),
		Orientated:    filepath.Join(c.cfg.OrientatedImagesDir, stem+ext),
		Processed:     filepath.Join(c.cfg.ProcessedOrientatedDir, stem+ext),
		Marker:        c.MarkerPath(item.BaseName),
	}

	data, err := encodeRecord(record)
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: failed to encode transcription: %v", ErrArtifactWrite, err)
	}
	if err := c.writer.WriteFile(artifacts.Transcription, data); err != nil {
		return Artifacts{}, fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}
	slog.Info("Transcription saved", "base_name", item.BaseName, "path", artifacts.Transcription)

	if err := c.writer.CopyFile(winner.FullSizePath, artifacts.Orientated); err != nil {
		return Artifacts{}, fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}
	if err := c.writer.CopyFile(winner.CroppedPath, artifacts.Processed); err != nil {
		return Artifacts{}, fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}

	marker := "Processed at: " + c.now().Format(markerTimeLayout)
	if err := c.writer.WriteFile(artifacts.Marker, []byte(marker)); err != nil {
		return Artifacts{}, fmt.Errorf("%w: failed to write marker: %v", ErrArtifactWrite, err)
	}
	return artifacts, nil
}

// removeStale deletes artifacts of an earlier completion that the new
// completion did not overwrite, such as files named after a previous
// identifier.
func (c *Controller) removeStale(previous *state.Item, current Artifacts) {
	if previous == nil {
		return
	}
	keep := make(map[string]bool)
	for _, p := range current.Paths() {
		keep[p] = true
	}
	for _, p := range previous.ArtifactPaths() {
		if keep[p] {
			continue
		}
		if !c.ownsPath(p) {
			slog.Debug("Keeping artifact outside the current output roots", "base_name", previous.BaseName, "path", p)
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove stale artifact", "base_name", previous.BaseName, "path", p, "error", err)
			continue
		}
		slog.Info("Removed stale artifact", "base_name", previous.BaseName, "path", p)
	}
}

// ownsPath reports whether path lies inside one of the output roots of
// this controller. Artifacts of a run against other roots are left alone.
func (c *Controller) ownsPath(path string) bool {
	for _, root := range []string{
		c.cfg.TranscriptionsDir,
		c.cfg.OrientatedImagesDir,
		c.cfg.ProcessedOrientatedDir,
		filepath.Join(c.cfg.ProcessedImagesDir, MarkerDir),
	} {
		if isWithin(root, path) {
			return true
		}
	}
	return false
}

func isWithin(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
