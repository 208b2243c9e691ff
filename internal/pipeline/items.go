package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDirectory is returned when the input path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Item is one source image discovered in the input directory.
type Item struct {
	Path string
	// BaseName is the file name without its extension. All outputs of the
	// item are grouped under it.
	BaseName string
	Ext      string
}

// NewItem describes the image at path.
func NewItem(path string) Item {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return Item{
		Path:     path,
		BaseName: strings.TrimSuffix(name, ext),
		Ext:      ext,
	}
}

// IsSupported reports whether path has an image extension the pipeline
// processes.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".png":
		return true
	default:
		return false
	}
}

// ListImages returns the supported images directly inside dir, sorted by
// file name.
func ListImages(dir string) ([]Item, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("provided path %s: %w", dir, ErrNotDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var items []Item
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		items = append(items, NewItem(filepath.Join(dir, entry.Name())))
	}
	return items, nil
}
