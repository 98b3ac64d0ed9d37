package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document QA tool.
type Config struct {
	Refine    RefineConfig    `yaml:"refine"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generate  GenerateConfig  `yaml:"generate"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RefineConfig holds chunk refinement configuration.
type RefineConfig struct {
	MaxTokens       int `yaml:"max_tokens"`       // token budget per passage
	OverlapSentence int `yaml:"overlap_sentence"` // trailing sentences carried into the next passage
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`    // Override for OpenAI-compatible endpoints
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// GenerateConfig holds answer generation provider configuration.
type GenerateConfig struct {
	Provider  string `yaml:"provider"` // "openai", "mock"
	Model     string `yaml:"model"`    // e.g., "gpt-4o-mini"
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int     `yaml:"top_k"`
	MinScore     float64 `yaml:"min_score"`      // Low-confidence threshold for backoff and summarization
	CacheSize    int     `yaml:"cache_size"`     // Query cache capacity (entries)
	CacheTTLSecs int     `yaml:"cache_ttl_secs"` // Query cache entry lifetime
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "file", "bolt", "memory"
	Dir     string `yaml:"dir"`     // Data directory for the file backend and the bolt db
}

// IngestConfig holds document discovery configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "error"
}

// ShowWarnings reports whether non-fatal warnings are printed.
func (l LoggingConfig) ShowWarnings() bool {
	return l.Level != "error"
}

// Verbose reports whether debug-level detail is printed.
func (l LoggingConfig) Verbose() bool {
	return l.Level == "debug"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Refine: RefineConfig{
			MaxTokens:       200,
			OverlapSentence: 3,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 64,
		},
		Generate: GenerateConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Retrieve: RetrieveConfig{
			TopK:         8,
			MinScore:     0.55,
			CacheSize:    100,
			CacheTTLSecs: 300,
		},
		Store: StoreConfig{
			Backend: "file",
			Dir:     ".doclens",
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/node_modules/**", "**/.git/**"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for doclens.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "doclens.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".doclens", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Refine.MaxTokens < 1 {
		return fmt.Errorf("refine.max_tokens must be positive, got %d", c.Refine.MaxTokens)
	}
	if c.Refine.OverlapSentence < 0 {
		return fmt.Errorf("refine.overlap_sentence must not be negative, got %d", c.Refine.OverlapSentence)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	switch c.Store.Backend {
	case "file", "bolt", "memory":
	default:
		return fmt.Errorf("store.backend must be file, bolt, or memory, got %q", c.Store.Backend)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, or error, got %q", c.Logging.Level)
	}
	return nil
}

// VectorDBPath returns the path to the bolt database file.
func VectorDBPath(dir string) string {
	return filepath.Join(dir, "vectors.db")
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
