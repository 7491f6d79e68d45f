package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override the config file.
const EnvPrefix = "TUBEINDEX"

// Config holds the application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	TextIndex TextIndexConfig `yaml:"text_index,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Graph     GraphConfig     `yaml:"graph,omitempty"`
	Temporal  TemporalConfig  `yaml:"temporal,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai"

	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model"`

	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Path to SQLite database file
	// If empty, uses ~/.tubeindex/data/tubeindex.db
	Path string `yaml:"path,omitempty"`
}

// TextIndexConfig holds the lexical index location.
type TextIndexConfig struct {
	// If empty, the index lives next to the database as <db>.bleve
	Path string `yaml:"path,omitempty"`
}

// SearchConfig holds search-specific configuration
type SearchConfig struct {
	DefaultLimit    int    `yaml:"default_limit,omitempty"`
	RRFK            int    `yaml:"rrf_k,omitempty"`
	OverfetchFactor int    `yaml:"overfetch_factor,omitempty"`
	MaxEvidence     int    `yaml:"max_evidence,omitempty"` // evidence chunks per video in --by-video output
	SynonymsFile    string `yaml:"synonyms_file,omitempty"`
}

// GraphConfig holds similarity graph configuration
type GraphConfig struct {
	Threshold     float64 `yaml:"threshold,omitempty"`      // build threshold, strictly greater than
	MinSimilarity float64 `yaml:"min_similarity,omitempty"` // traversal floor, inclusive
	RelatedLimit  int     `yaml:"related_limit,omitempty"`
}

// TemporalConfig holds temporal decay configuration
type TemporalConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days,omitempty"`
}

// CacheConfig holds query-embedding cache configuration
type CacheConfig struct {
	Backend       string        `yaml:"backend,omitempty"` // "memory" | "redis" | "none"
	TTL           time.Duration `yaml:"ttl,omitempty"`
	MaxEntries    int           `yaml:"max_entries,omitempty"`
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db,omitempty"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `yaml:"level,omitempty"` // debug | info | warn | error
	Development bool   `yaml:"development,omitempty"`
}

// envOverrides lists the settings that may be supplied through TUBEINDEX_* variables.
// Only variables that are set are applied.
type envOverrides struct {
	EmbeddingAPIKey   *string  `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingEndpoint *string  `envconfig:"EMBEDDING_ENDPOINT"`
	EmbeddingModel    *string  `envconfig:"EMBEDDING_MODEL"`
	DatabasePath      *string  `envconfig:"DATABASE_PATH"`
	TextIndexPath     *string  `envconfig:"TEXT_INDEX_PATH"`
	CacheBackend      *string  `envconfig:"CACHE_BACKEND"`
	RedisAddr         *string  `envconfig:"REDIS_ADDR"`
	RedisPassword     *string  `envconfig:"REDIS_PASSWORD"`
	GraphThreshold    *float64 `envconfig:"GRAPH_THRESHOLD"`
	HalfLifeDays      *float64 `envconfig:"HALF_LIFE_DAYS"`
	LogLevel          *string  `envconfig:"LOG_LEVEL"`
}

// DefaultPath returns ~/.tubeindex/config/tubeindex.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tubeindex", "config", "tubeindex.yaml"), nil
}

// Load loads configuration from the default config file
// Default location: ~/.tubeindex/config/tubeindex.yaml
func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file, then applies
// environment overrides (including a .env file in the working directory).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no file behind it.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with --config flag\n"+
		"  3. Run 'tubeindex init' to write a template",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	var target *ConfigNotFoundError
	return errors.As(err, &target)
}

func (c *Config) applyEnv() error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.Embedding.APIKey, env.EmbeddingAPIKey)
	setString(&c.Embedding.Endpoint, env.EmbeddingEndpoint)
	setString(&c.Embedding.Model, env.EmbeddingModel)
	setString(&c.Database.Path, env.DatabasePath)
	setString(&c.TextIndex.Path, env.TextIndexPath)
	setString(&c.Cache.Backend, env.CacheBackend)
	setString(&c.Cache.RedisAddr, env.RedisAddr)
	setString(&c.Cache.RedisPassword, env.RedisPassword)
	setString(&c.Log.Level, env.LogLevel)
	if env.GraphThreshold != nil {
		c.Graph.Threshold = *env.GraphThreshold
	}
	if env.HalfLifeDays != nil {
		c.Temporal.HalfLifeDays = *env.HalfLifeDays
	}
	return nil
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Endpoint == "" {
		c.Embedding.Endpoint = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Embedding.MaxRetries == 0 {
		c.Embedding.MaxRetries = 3
	}

	if c.Database.Path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.Database.Path = filepath.Join(homeDir, ".tubeindex", "data", "tubeindex.db")
		}
	}
	c.Database.Path = expandPath(c.Database.Path)

	if c.TextIndex.Path == "" && c.Database.Path != "" {
		c.TextIndex.Path = strings.TrimSuffix(c.Database.Path, filepath.Ext(c.Database.Path)) + ".bleve"
	}
	c.TextIndex.Path = expandPath(c.TextIndex.Path)

	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.RRFK == 0 {
		c.Search.RRFK = 60
	}
	if c.Search.OverfetchFactor == 0 {
		c.Search.OverfetchFactor = 3
	}
	if c.Search.MaxEvidence == 0 {
		c.Search.MaxEvidence = 3
	}
	c.Search.SynonymsFile = expandPath(c.Search.SynonymsFile)

	if c.Graph.Threshold == 0 {
		c.Graph.Threshold = 0.75
	}
	if c.Graph.MinSimilarity == 0 {
		c.Graph.MinSimilarity = 0.75
	}
	if c.Graph.RelatedLimit == 0 {
		c.Graph.RelatedLimit = 10
	}

	if c.Temporal.HalfLifeDays == 0 {
		c.Temporal.HalfLifeDays = 365
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 1024
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 2048 {
		return fmt.Errorf("batch_size must be between 1 and 2048, got: %d", c.Embedding.BatchSize)
	}

	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > 100 {
		return fmt.Errorf("search.default_limit must be between 1 and 100, got: %d", c.Search.DefaultLimit)
	}
	if c.Search.RRFK < 1 {
		return fmt.Errorf("search.rrf_k must be positive, got: %d", c.Search.RRFK)
	}
	if c.Search.OverfetchFactor < 1 {
		return fmt.Errorf("search.overfetch_factor must be positive, got: %d", c.Search.OverfetchFactor)
	}

	if c.Graph.Threshold < 0 || c.Graph.Threshold > 1 {
		return fmt.Errorf("graph.threshold must be in [0, 1], got: %v", c.Graph.Threshold)
	}
	if c.Graph.MinSimilarity < 0 || c.Graph.MinSimilarity > 1 {
		return fmt.Errorf("graph.min_similarity must be in [0, 1], got: %v", c.Graph.MinSimilarity)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}

	return nil
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// PlaceholderAPIKey is the api_key written by WriteDefaultTemplate.
const PlaceholderAPIKey = "your-openai-api-key"

const defaultConfigTemplate = `# tubeindex configuration
#
# Default location: $HOME/.tubeindex/config/tubeindex.yaml
# Any TUBEINDEX_* environment variable (or .env entry) overrides the values below,
# e.g. TUBEINDEX_EMBEDDING_API_KEY, TUBEINDEX_DATABASE_PATH.

embedding:
  provider: openai
  api_key: your-openai-api-key
  endpoint: https://api.openai.com/v1
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 64

database:
  path: ~/.tubeindex/data/tubeindex.db

search:
  default_limit: 10
  rrf_k: 60
  overfetch_factor: 3
  max_evidence: 3
  # synonyms_file: ~/.tubeindex/config/synonyms.yaml

graph:
  threshold: 0.75
  min_similarity: 0.75
  related_limit: 10

temporal:
  half_life_days: 365

cache:
  backend: memory   # memory | redis | none
  ttl: 24h
  max_entries: 1024
  # redis_addr: localhost:6379

log:
  level: info
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
