package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Roots configuration

# user: your-name (or set ROOTS_USER env var)

store:
  backend: sqlite # sqlite, dynamodb or supabase (or set ROOTS_BACKEND)

# sqlite:
#   path: family.db (defaults to .roots/trees/<tree>/roots.db)

dynamodb:
  table: roots
  region: us-east-1
  # endpoint: http://localhost:8000 (DynamoDB Local)

# supabase:
#   url: https://your-project.supabase.co (or set SUPABASE_URL env var)
#   key: your-service-key (or set SUPABASE_KEY env var)

breaker:
  enabled: true
  max_requests: 5
  interval: 30s
  timeout: 60s
  failure_threshold: 0.8
  min_requests: 5

log:
  level: warn
  format: console

llm:
  provider: openai
  model: gpt-4o-mini
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

embedder:
  provider: openai
  model: text-embedding-3-small
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

qdrant:
  host: localhost
  port: 6334
  # api_key: your-api-key (for Qdrant Cloud)
`

// WriteDefault creates the .roots directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := ConfigDir(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks if a roots config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile))
	return err == nil
}
