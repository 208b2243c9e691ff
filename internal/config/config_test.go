package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRANSCRIBE_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "OLLAMA_HOST", "OLLAMA_URL",
		"OLLAMA_MODEL", "GEMINI_API_KEY", "GEMINI_MODEL", "GOOGLE_MAPS_API_KEY",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Extraction.Provider != ProviderOpenAI {
		t.Errorf("Expected default provider openai, got %s", cfg.Extraction.Provider)
	}
	if cfg.Pipeline.Concurrency != 1 {
		t.Errorf("Expected sequential default, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.ProcessedOrientatedDir() != "processed_images_orientated" {
		t.Errorf("Unexpected processed+orientated dir %s", cfg.ProcessedOrientatedDir())
	}
	if cfg.StateDBPath() != filepath.Join("processed_images", "state.db") {
		t.Errorf("Unexpected state db path %s", cfg.StateDBPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
processed_images_dir = "out/processed"

[extraction]
provider = "Ollama"
timeout_seconds = 30

[pipeline]
concurrency = 4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "llava:13b")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Extraction.Provider != ProviderOllama {
		t.Errorf("Expected provider to be normalized to ollama, got %s", cfg.Extraction.Provider)
	}
	if cfg.Paths.ProcessedImagesDir != "out/processed" {
		t.Errorf("Unexpected processed dir %s", cfg.Paths.ProcessedImagesDir)
	}
	if cfg.Paths.TranscriptionsDir != "transcriptions" {
		t.Errorf("Expected default transcriptions dir to survive, got %s", cfg.Paths.TranscriptionsDir)
	}
	if cfg.Ollama.URL != "http://gpu-box:11434" {
		t.Errorf("Expected env override for ollama url, got %s", cfg.Ollama.URL)
	}
	if cfg.Model() != "llava:13b" {
		t.Errorf("Expected provider model from env, got %s", cfg.Model())
	}
	if cfg.Pipeline.Concurrency != 4 || cfg.Extraction.TimeoutSeconds != 30 {
		t.Errorf("Unexpected pipeline settings: %+v %+v", cfg.Pipeline, cfg.Extraction)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing explicit config")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[paths\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Extraction.Provider = "claude" }, wantErr: "unsupported provider"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Pipeline.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "zero timeout", mutate: func(c *Config) { c.Extraction.TimeoutSeconds = 0 }, wantErr: "timeout"},
		{name: "empty dir", mutate: func(c *Config) { c.Paths.TranscriptionsDir = "" }, wantErr: "output directories"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestModelPrefersExplicitSetting(t *testing.T) {
	cfg := Default()
	cfg.Extraction.Provider = ProviderGemini
	if cfg.Model() != "gemini-1.5-flash" {
		t.Errorf("Expected gemini default model, got %s", cfg.Model())
	}
	cfg.Extraction.Model = "gemini-2.0-pro"
	if cfg.Model() != "gemini-2.0-pro" {
		t.Errorf("Expected explicit model, got %s", cfg.Model())
	}
}
