// Package geocode enriches stored transcriptions with Google Maps
// Geocoding API results.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ibebio/herb-transcribe/internal/models"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultCountry = "Zimbabwe"

	// ResultKey is the top-level key the geocoding response is stored under.
	ResultKey = "geocoding"
)

// Settings configures the geocoding client.
type Settings struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client queries the geocoding API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns a client. Empty settings fall back to the public endpoint and
// a client with a 30 second timeout.
func New(s Settings) *Client {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiKey: s.APIKey, baseURL: s.BaseURL, httpClient: s.HTTPClient}
}

type statusEnvelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves address and returns the raw API response.
func (c *Client) Geocode(ctx context.Context, address string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, errors.New("geocoding API key not set")
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API error (status %d): %s", resp.StatusCode, string(body))
	}
	if !json.Valid(body) {
		return nil, errors.New("geocoding API returned invalid JSON")
	}

	var envelope statusEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status != "" && envelope.Status != "OK" {
		slog.Warn("Geocoding returned no match", "status", envelope.Status, "message", envelope.ErrorMessage, "address", address)
	}
	return json.RawMessage(body), nil
}

// Query builds the address searched for a record.
func Query(record *models.Record, country string) string {
	if country == "" {
		country = DefaultCountry
	}
	return fmt.Sprintf("%s, %s District, %s",
		record.Metadata[models.MetaGeographicInformation],
		record.Label[models.LabelDistrict],
		country)
}

// Result describes one enrichment.
type Result struct {
	Query    string
	Geocoded bool
}

// Enrich geocodes the transcription at input and writes it to output with
// the response under ResultKey. When the request fails the record is
// written unchanged.
func Enrich(ctx context.Context, c *Client, input, output, country string) (*Result, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", input, err)
	}
	var record models.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record in %s: %w", input, err)
	}
	if _, ok := doc["label"]; !ok {
		return nil, fmt.Errorf("%s has no label group", input)
	}

	result := &Result{Query: Query(&record, country)}
	slog.Info("Geocoding location", "query", result.Query)

	geocoding, err := c.Geocode(ctx, result.Query)
	if err != nil {
		slog.Error("Failed to perform geocoding", "input", input, "error", err)
	} else {
		doc[ResultKey] = geocoding
		result.Geocoded = true
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", output, err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", output, err)
	}
	slog.Info("Updated JSON saved", "output", output, "geocoded", result.Geocoded)
	return result, nil
}
