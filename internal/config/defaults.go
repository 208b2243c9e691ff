package config

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Paths: Paths{
			ProcessedImagesDir:  "processed_images",
			TranscriptionsDir:   "transcriptions",
			OrientatedImagesDir: "orientated_images",
		},
		Extraction: Extraction{
			Provider:       ProviderOpenAI,
			Temperature:    0.1,
			MaxTokens:      4000,
			TimeoutSeconds: 120,
		},
		OpenAI: OpenAI{
			BaseURL: "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4o",
		},
		Ollama: Ollama{
			URL:   "http://localhost:11434",
			Model: "mistral-small3.2:24b",
		},
		Gemini: Gemini{
			Model: "gemini-1.5-flash",
		},
		Pipeline: Pipeline{
			Concurrency:  1,
			JPEGQuality:  95,
			WatchDelayMS: 500,
		},
		Geocode: Geocode{
			BaseURL: "https://maps.googleapis.com/maps/api/geocode/json",
			Country: "Zimbabwe",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}
