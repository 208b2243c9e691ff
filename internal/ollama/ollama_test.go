package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ibebio/herb-transcribe/internal/providers"
)

func TestExtractText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model  string   `json:"model"`
			Images []string `json:"images"`
			Format string   `json:"format"`
			Stream bool     `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "llava" || len(req.Images) != 1 || req.Format != "json" || req.Stream {
			t.Errorf("Unexpected request: %+v", req)
		}
		if req.Images[0] != "aGk=" {
			t.Errorf("Expected base64 image, got %s", req.Images[0])
		}
		_, _ = w.Write([]byte(`{"response":"{\"label\":{\"plant_id\":\"SRGH1\"}}"}`))
	}))
	defer server.Close()

	out, err := New(Settings{URL: server.URL + "/"}).ExtractText(context.Background(), providers.Config{
		Model: "llava",
		Image: []byte("hi"),
	})
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if out != `{"label":{"plant_id":"SRGH1"}}` {
		t.Errorf("Unexpected response %q", out)
	}
}

func TestExtractTextStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := New(Settings{URL: server.URL}).ExtractText(context.Background(), providers.Config{}); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestNewDefaults(t *testing.T) {
	if o := New(Settings{}); o.url != DefaultURL {
		t.Errorf("Expected default URL, got %s", o.url)
	}
}
