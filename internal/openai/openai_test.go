package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ibebio/herb-transcribe/internal/providers"
)

func TestExtractText(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"label\":{}}"}}]}`))
	}))
	defer server.Close()

	o := New(Settings{APIKey: "test-key", BaseURL: server.URL})
	out, err := o.ExtractText(context.Background(), providers.Config{
		Model:    "gpt-4o",
		Prompt:   "transcribe",
		Image:    []byte{0xff, 0xd8},
		MimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if out != `{"label":{}}` {
		t.Errorf("Unexpected content %q", out)
	}

	if captured["model"] != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %v", captured["model"])
	}
	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	imagePart := content[1].(map[string]interface{})["image_url"].(map[string]interface{})
	if url := imagePart["url"].(string); !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("Expected png data URL, got %s", url)
	}
	if _, ok := captured["max_tokens"]; ok {
		t.Error("max_tokens should be omitted when unset")
	}
}

func TestExtractTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := New(Settings{BaseURL: server.URL}).ExtractText(context.Background(), providers.Config{}); err == nil {
		t.Error("Expected error without API key")
	}

	_, err := New(Settings{APIKey: "k", BaseURL: server.URL}).ExtractText(context.Background(), providers.Config{})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}
