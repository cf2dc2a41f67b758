package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all porkvision configuration.
type Config struct {
	// Generative engine
	Engine EngineConfig `yaml:"engine"`

	// Retrieval retry policy
	Retry RetryConfig `yaml:"retry"`

	// Local analysis knobs
	Analysis AnalysisConfig `yaml:"analysis"`

	// Report archive
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the generative engine client.
type EngineConfig struct {
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"` // empty means the public endpoint
	Timeout      string  `yaml:"timeout"`
	EnableSearch bool    `yaml:"enable_search"` // first attempt with the web-search tool
	Temperature  float32 `yaml:"temperature"`
}

// RetryConfig configures the degraded-mode backoff.
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

// AnalysisConfig configures the local metrics.
type AnalysisConfig struct {
	SimilarityThreshold  int    `yaml:"similarity_threshold"`
	IncludeLocalFindings bool   `yaml:"include_local_findings"` // feed detector/similarity output into the prompt
	CorpusPath           string `yaml:"corpus_path"`            // empty means the embedded corpus
	MaxInputBytes        int64  `yaml:"max_input_bytes"`
}

// StoreConfig configures the SQLite report archive.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultModel is the engine model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Model:        DefaultModel,
			Timeout:      "120s",
			EnableSearch: true,
			Temperature:  0.2,
		},

		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  "1s",
		},

		Analysis: AnalysisConfig{
			SimilarityThreshold:  70,
			IncludeLocalFindings: true,
			MaxInputBytes:        4 << 20,
		},

		Store: StoreConfig{
			DatabasePath: filepath.Join(".porkvision", "reports.db"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing file: defaults plus environment
		data = nil
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over GOOGLE_API_KEY
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Engine.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Engine.APIKey = key
	}
	if model := os.Getenv("PORKVISION_MODEL"); model != "" {
		c.Engine.Model = model
	}
	if path := os.Getenv("PORKVISION_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if path := os.Getenv("PORKVISION_CORPUS"); path != "" {
		c.Analysis.CorpusPath = path
	}
}

// GetEngineTimeout returns the per-call engine timeout as a duration.
func (c *Config) GetEngineTimeout() time.Duration {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetBaseDelay returns the backoff base delay as a duration.
func (c *Config) GetBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.Retry.BaseDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := ValidateAPIKey(c.Engine.APIKey); err != nil {
		return err
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine model not configured")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if t := c.Analysis.SimilarityThreshold; t < 0 || t > 100 {
		return fmt.Errorf("analysis.similarity_threshold must be within 0-100, got %d", t)
	}
	return nil
}

// =============================================================================
// API KEY FORMAT
// =============================================================================

const (
	apiKeyPrefix    = "AIza"
	apiKeyMinLength = 39
)

var (
	// ErrMissingAPIKey is returned when no key is configured.
	ErrMissingAPIKey = errors.New("engine API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	// ErrInvalidAPIKey is returned when a key cannot be a Gemini key.
	ErrInvalidAPIKey = errors.New("invalid engine API key")
)

// ValidateAPIKey checks the key format before any engine call is made.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingAPIKey
	}
	if !strings.HasPrefix(key, apiKeyPrefix) {
		return fmt.Errorf("%w: expected prefix %q", ErrInvalidAPIKey, apiKeyPrefix)
	}
	if len(key) < apiKeyMinLength {
		return fmt.Errorf("%w: too short (%d chars, need %d)", ErrInvalidAPIKey, len(key), apiKeyMinLength)
	}
	return nil
}
