package openai

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

// DefaultBaseURL is the chat completions endpoint.
const DefaultBaseURL = "https://api.openai.com/v1/chat/completions"

// Settings holds the connection details for the OpenAI API.
type Settings struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI is a provider for OpenAI
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns a new OpenAI provider
func New(s Settings) *OpenAI {
	o := &OpenAI{
		apiKey:     strings.TrimSpace(s.APIKey),
		baseURL:    strings.TrimSpace(s.BaseURL),
		httpClient: s.HTTPClient,
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

// ExtractText sends the prompt and image to OpenAI and returns the raw
// message content.
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	body := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": config.Prompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": config.DataURL(),
						},
					},
				},
			},
		},
		"temperature":     config.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}
	if config.MaxTokens > 0 {
		body["max_tokens"] = config.MaxTokens
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}
	if refusal := response.Choices[0].Message.Refusal; refusal != "" {
		return "", fmt.Errorf("request refused by OpenAI: %s", refusal)
	}

	return response.Choices[0].Message.Content, nil
}
