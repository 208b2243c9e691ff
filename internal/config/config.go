package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains the output directory layout.
type Paths struct {
	ProcessedImagesDir  string `toml:"processed_images_dir"`
	TranscriptionsDir   string `toml:"transcriptions_dir"`
	OrientatedImagesDir string `toml:"orientated_images_dir"`
	StateDB             string `toml:"state_db"`
}

// Extraction contains the settings shared by every provider.
type Extraction struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// OpenAI contains connection settings for the OpenAI provider.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Ollama contains connection settings for the Ollama provider.
type Ollama struct {
	URL   string `toml:"url"`
	Model string `toml:"model"`
}

// Gemini contains connection settings for the Gemini provider.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Pipeline contains processing behaviour.
type Pipeline struct {
	Concurrency  int  `toml:"concurrency"`
	Override     bool `toml:"override"`
	JPEGQuality  int  `toml:"jpeg_quality"`
	WatchDelayMS int  `toml:"watch_delay_ms"`
}

// Geocode contains settings for the geocoding enrichment.
type Geocode struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Country string `toml:"country"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Extraction Extraction `toml:"extraction"`
	OpenAI     OpenAI     `toml:"openai"`
	Ollama     Ollama     `toml:"ollama"`
	Gemini     Gemini     `toml:"gemini"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Geocode    Geocode    `toml:"geocode"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/herb-transcribe/config.toml")
}

// Load reads the configuration file at path on top of the defaults and
// applies environment overrides. A missing file at the default location is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", resolved, err)
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Extraction.Provider, "TRANSCRIBE_PROVIDER")
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.OpenAI.Model, "OPENAI_MODEL")
	setFromEnv(&c.Ollama.URL, "OLLAMA_HOST")
	setFromEnv(&c.Ollama.URL, "OLLAMA_URL")
	setFromEnv(&c.Ollama.Model, "OLLAMA_MODEL")
	setFromEnv(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Gemini.Model, "GEMINI_MODEL")
	setFromEnv(&c.Geocode.APIKey, "GOOGLE_MAPS_API_KEY")
}

func setFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func (c *Config) normalize() {
	c.Extraction.Provider = strings.ToLower(strings.TrimSpace(c.Extraction.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	for _, p := range []*string{
		&c.Paths.ProcessedImagesDir,
		&c.Paths.TranscriptionsDir,
		&c.Paths.OrientatedImagesDir,
		&c.Paths.StateDB,
	} {
		if expanded, err := expandPath(*p); err == nil {
			*p = expanded
		}
	}
}

// Validate checks the values that would otherwise fail mid-run.
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider: %q (supported: openai, ollama, gemini)", c.Extraction.Provider)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		return fmt.Errorf("extraction.timeout_seconds must be positive, got %d", c.Extraction.TimeoutSeconds)
	}
	if c.Paths.ProcessedImagesDir == "" || c.Paths.TranscriptionsDir == "" || c.Paths.OrientatedImagesDir == "" {
		return errors.New("output directories must not be empty")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Logging.Format)
	}
	return nil
}

// ProcessedOrientatedDir returns the root holding the cropped winners.
func (c *Config) ProcessedOrientatedDir() string {
	return strings.TrimRight(c.Paths.ProcessedImagesDir, string(filepath.Separator)) + "_orientated"
}

// StateDBPath returns the state journal location.
func (c *Config) StateDBPath() string {
	if c.Paths.StateDB != "" {
		return c.Paths.StateDB
	}
	return filepath.Join(c.Paths.ProcessedImagesDir, "state.db")
}

// Model returns the configured model, falling back to the provider default.
func (c *Config) Model() string {
	if c.Extraction.Model != "" {
		return c.Extraction.Model
	}
	switch c.Extraction.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderOllama:
		return c.Ollama.Model
	case ProviderGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
