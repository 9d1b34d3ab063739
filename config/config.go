package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the advisor.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Memory    MemoryConfig    `yaml:"memory"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path string `yaml:"path"` // bbolt database file; relative paths resolve against the root dir
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`    // "ollama", "openai", "mock"
	Model          string `yaml:"model"`       // e.g., "nomic-embed-text"
	BaseURL        string `yaml:"base_url"`    // empty means the provider default
	APIKeyEnv      string `yaml:"api_key_env"` // Environment variable for API key
	Dimension      int    `yaml:"dimension"`   // only used by the mock provider
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LLMConfig holds text generation configuration.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // "ollama", "openai", "mock"
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// RetrieveConfig holds similarity search configuration.
type RetrieveConfig struct {
	MinScore        float64 `yaml:"min_score"` // results scoring at or below this are dropped
	TrainingLimit   int     `yaml:"training_limit"`
	ProjectLimit    int     `yaml:"project_limit"`
	CacheSize       int     `yaml:"cache_size"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// MemoryConfig holds conversation memory configuration.
type MemoryConfig struct {
	TopicWindow      int `yaml:"topic_window"`      // turns fed to topic extraction
	SummaryThreshold int `yaml:"summary_threshold"` // summarize only above this many turns
	SummaryMaxChars  int `yaml:"summary_max_chars"`
	HistoryWindow    int `yaml:"history_window"` // turns replayed into the chat prompt
}

// CatalogConfig holds seed file discovery configuration.
type CatalogConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"` // "dev" or "prod"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: filepath.Join(".advisor", "advisor.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			Model:          "nomic-embed-text",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			TimeoutSeconds: 60,
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			Model:          "llama3.1:8b",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.7,
			TimeoutSeconds: 300,
		},
		Retrieve: RetrieveConfig{
			MinScore:        0.3,
			TrainingLimit:   5,
			ProjectLimit:    3,
			CacheSize:       100,
			CacheTTLSeconds: 300,
		},
		Memory: MemoryConfig{
			TopicWindow:      8,
			SummaryThreshold: 10,
			SummaryMaxChars:  4000,
			HistoryWindow:    10,
		},
		Catalog: CatalogConfig{
			Includes: []string{"catalog/**/*.yaml", "catalog/**/*.yml"},
			Excludes: []string{"**/.git/**"},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
			Mode:  "dev",
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

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for advisor.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "advisor.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".advisor", "config.yaml")
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

// DBPath returns the absolute path to the database for the given root dir.
func (c *Config) DBPath(dir string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(dir, c.Storage.Path)
}

// EnsureDataDir ensures the directory holding the database exists.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.DBPath(dir)), 0755)
}

// APIKey resolves an API key from the named environment variable.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}
