// Package transcription turns a cropped label image into a structured
// record by way of a vision LLM provider.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ibebio/herb-transcribe/internal/models"
	"github.com/ibebio/herb-transcribe/internal/providers"
)

// DefaultTimeout bounds a single extraction call.
const DefaultTimeout = 120 * time.Second

// Extractor produces a record for one image.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (*models.Record, error)
}

// Config holds the per-request settings of the client.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client sends images to a provider and parses the replies.
type Client struct {
	provider providers.Provider
	cfg      Config
	prompt   string
}

// NewClient returns a client bound to provider.
func NewClient(provider providers.Provider, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		provider: provider,
		cfg:      cfg,
		prompt:   BuildPrompt(),
	}
}

// Extract uploads the image at imagePath and returns the parsed record.
// The returned record carries imagePath in ImagePath.
func (c *Client) Extract(ctx context.Context, imagePath string) (*models.Record, error) {
	if c.provider == nil {
		return nil, errors.New("no extraction provider configured")
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.provider.ExtractText(ctx, providers.Config{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Prompt:      c.prompt,
		Image:       imageData,
		MimeType:    MimeType(imagePath),
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("extraction timed out after %s: %w", c.cfg.Timeout, err)
		}
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	slog.Debug("Received extraction response", "image", imagePath, "length", len(raw), "duration", time.Since(start))

	record, err := ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	record.ImagePath = imagePath
	return record, nil
}

// MimeType guesses the image MIME type from the file extension.
func MimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
