package transcription

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ibebio/herb-transcribe/internal/config"
	"github.com/ibebio/herb-transcribe/internal/gemini"
	"github.com/ibebio/herb-transcribe/internal/ollama"
	"github.com/ibebio/herb-transcribe/internal/openai"
	"github.com/ibebio/herb-transcribe/internal/providers"
)

// NewProvider builds the provider named in cfg.
func NewProvider(cfg *config.Config) (providers.Provider, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second,
	}
	switch cfg.Extraction.Provider {
	case config.ProviderOpenAI:
		return openai.New(openai.Settings{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
		}), nil
	case config.ProviderOllama:
		return ollama.New(ollama.Settings{
			URL:        cfg.Ollama.URL,
			HTTPClient: httpClient,
		}), nil
	case config.ProviderGemini:
		return gemini.New(gemini.Settings{APIKey: cfg.Gemini.APIKey}), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Extraction.Provider)
	}
}

// NewClientFromConfig builds the provider and wraps it in a client.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(provider, Config{
		Model:       cfg.Model(),
		Temperature: cfg.Extraction.Temperature,
		MaxTokens:   cfg.Extraction.MaxTokens,
		Timeout:     time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second,
	}), nil
}
