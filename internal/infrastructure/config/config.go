// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for roots configuration.
	DefaultConfigDir = ".roots"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultTreesFile is the default trees registry file name.
	DefaultTreesFile = "trees.yaml"
	// DefaultEnvFile holds optional secrets next to the config directory.
	DefaultEnvFile = ".env"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendSupabase = "supabase"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	User     string         `yaml:"user,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb,omitempty"`
	Supabase SupabaseConfig `yaml:"supabase,omitempty"`
	Breaker  BreakerConfig  `yaml:"breaker,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// When empty, the per-tree path from SQLitePathForTree is used.
	Path string `yaml:"path,omitempty"`
}

// DynamoDBConfig holds configuration for the DynamoDB backend.
type DynamoDBConfig struct {
	Table  string `yaml:"table,omitempty"`
	Region string `yaml:"region,omitempty"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// SupabaseConfig holds configuration for the Supabase backend.
type SupabaseConfig struct {
	URL string `yaml:"url,omitempty"`
	Key string `yaml:"key,omitempty"`
}

// BreakerConfig configures the circuit breaker around the store.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests,omitempty"`
	Interval         time.Duration `yaml:"interval,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	FailureThreshold float64       `yaml:"failure_threshold,omitempty"`
	MinRequests      uint32        `yaml:"min_requests,omitempty"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "console" or "json"
}

// LLMConfig holds configuration for the LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL points at an OpenAI-compatible endpoint. Empty means api.openai.com.
	BaseURL  string `yaml:"base_url,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL points at an OpenAI-compatible endpoint. Empty means api.openai.com.
	BaseURL  string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		DynamoDB: DynamoDBConfig{
			Table:  "roots",
			Region: "us-east-1",
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
	}
}

// Load loads configuration from the .roots directory in the given path.
// A .env file in basePath, if present, is loaded into the environment first;
// variables already set are not overridden.
func Load(basePath string) (*Config, error) {
	if err := loadEnvFile(filepath.Join(basePath, DefaultEnvFile)); err != nil {
		return nil, err
	}

	configFile := ConfigFilePath(basePath)
	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'roots init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading env file: %w", err)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
	if url := os.Getenv("SUPABASE_URL"); url != "" && c.Supabase.URL == "" {
		c.Supabase.URL = url
	}
	if key := os.Getenv("SUPABASE_KEY"); key != "" && c.Supabase.Key == "" {
		c.Supabase.Key = key
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		c.DynamoDB.Region = region
	}
	// Backend and user selection from the environment win over the file.
	if backend := os.Getenv("ROOTS_BACKEND"); backend != "" {
		c.Store.Backend = strings.ToLower(backend)
	}
	if user := os.Getenv("ROOTS_USER"); user != "" {
		c.User = user
	}
}

// Validate checks that the selected backend is known and configured.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.New("dynamodb.table is required for the dynamodb backend")
		}
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return errors.New("supabase.url and supabase.key are required for the supabase backend (or set SUPABASE_URL and SUPABASE_KEY)")
		}
	default:
		return fmt.Errorf("unknown store backend: %q (valid: %s, %s, %s)",
			c.Store.Backend, BackendSQLite, BackendDynamoDB, BackendSupabase)
	}
	if c.Breaker.FailureThreshold < 0 || c.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("breaker.failure_threshold must be between 0 and 1, got %v", c.Breaker.FailureThreshold)
	}
	return nil
}

// ConfigDir returns the path to the .roots config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// TreesFilePath returns the path to the trees registry.
func TreesFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultTreesFile)
}

// SanitizeTreeName converts a tree name to a safe directory or collection suffix.
func SanitizeTreeName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates the biography collection name for a tree.
func GenerateCollectionName(treeName string) string {
	return "roots_" + SanitizeTreeName(treeName)
}

// SQLitePathForTree returns the SQLite database path for a given tree.
func SQLitePathForTree(basePath, treeName string) string {
	return filepath.Join(TreeDir(basePath, treeName), "roots.db")
}

// TreeDir returns the directory path for a given tree.
func TreeDir(basePath, treeName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "trees", SanitizeTreeName(treeName))
}
