package providers

import (
	"context"
	"encoding/base64"
)

// Config represents one extraction request sent to a vision provider.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Prompt      string
	Image       []byte
	MimeType    string
}

// Provider defines the interface for a vision LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// Base64Image returns the request image encoded for JSON transports.
func (c Config) Base64Image() string {
	return base64.StdEncoding.EncodeToString(c.Image)
}

// DataURL returns the request image as a data URL.
func (c Config) DataURL() string {
	mime := c.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + c.Base64Image()
}
