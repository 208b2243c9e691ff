package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ibebio/herb-transcribe/internal/providers"
)

// DefaultURL is the local Ollama server address.
const DefaultURL = "http://localhost:11434"

// Settings holds the connection details for an Ollama server.
type Settings struct {
	URL        string
	HTTPClient *http.Client
}

// Ollama is a provider for Ollama
type Ollama struct {
	url        string
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(s Settings) *Ollama {
	o := &Ollama{
		url:        strings.TrimRight(strings.TrimSpace(s.URL), "/"),
		httpClient: s.HTTPClient,
	}
	if o.url == "" {
		o.url = DefaultURL
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

// ExtractText sends the prompt and image to Ollama and returns the raw
// generated response.
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	url := o.url + "/api/generate"

	options := map[string]interface{}{
		"temperature": config.Temperature,
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":   config.Model,
		"prompt":  config.Prompt,
		"images":  []string{config.Base64Image()},
		"stream":  false,
		"format":  "json",
		"options": options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}
