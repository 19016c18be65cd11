// Package config provides YAML-based configuration for kbrag.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. KBRAG_CONFIG environment variable
//  3. ~/.kbrag/config.yaml
//  4. ./kbrag.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
type Config struct {
	// Knowledge locates the knowledge base inputs.
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Store selects and configures the vector store.
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding backend.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the Qdrant connection when store.backend is qdrant.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// KnowledgeConfig holds the knowledge base layout.
type KnowledgeConfig struct {
	// Root is the knowledge_base directory.
	Root string `yaml:"root"`
	// DataExamplesDir overrides <root>/Data Examples.
	DataExamplesDir string `yaml:"data_examples_dir"`
	// TranscriptsDir overrides <root>/transcripts.
	TranscriptsDir string `yaml:"transcripts_dir"`
	// ExtractedJSON overrides <root>/extracted_raw.json.
	ExtractedJSON string `yaml:"extracted_json"`
	// SchemaDir holds the deliverable *.schema.json files.
	SchemaDir string `yaml:"schema_dir"`
}

// StoreConfig holds vector store settings.
type StoreConfig struct {
	// Backend is sqlite (default), memory or qdrant.
	Backend string `yaml:"backend"`
	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path"`
	// Collection is the collection name.
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Provider selects the backend: ollama (default), openai, azure, or hash
	// for offline use.
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// BatchSize caps texts per remote request.
	BatchSize int `yaml:"batch_size"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var KBRAG_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their env var names.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"KBRAG_ROOT", func(c *Config) string { return c.Knowledge.Root }},
	{"KBRAG_DATA_EXAMPLES_DIR", func(c *Config) string { return c.Knowledge.DataExamplesDir }},
	{"KBRAG_TRANSCRIPTS_DIR", func(c *Config) string { return c.Knowledge.TranscriptsDir }},
	{"KBRAG_EXTRACTED_JSON", func(c *Config) string { return c.Knowledge.ExtractedJSON }},
	{"KBRAG_SCHEMA_DIR", func(c *Config) string { return c.Knowledge.SchemaDir }},
	{"KBRAG_STORE", func(c *Config) string { return c.Store.Backend }},
	{"KBRAG_DB_PATH", func(c *Config) string { return c.Store.DBPath }},
	{"KBRAG_COLLECTION", func(c *Config) string { return c.Store.Collection }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_BATCH_SIZE", func(c *Config) string { return intStr(c.Embedding.BatchSize) }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"KBRAG_HOST", func(c *Config) string { return c.Server.Host }},
	{"KBRAG_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"KBRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and exports its non-empty values as
// environment variables. Existing env vars are never overwritten. It returns
// the path that was loaded, or "" if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		v := m.value(&cfg)
		if v == "" {
			continue
		}
		if _, set := os.LookupEnv(m.envKey); set {
			continue
		}
		if err := os.Setenv(m.envKey, v); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

// resolveConfigPath returns the first config file path that exists. An
// explicit path that does not exist resolves to "".
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if exists(explicit) {
			return explicit
		}
		return ""
	}

	candidates := []string{os.Getenv("KBRAG_CONFIG")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".kbrag", "config.yaml"))
	}
	candidates = append(candidates, "kbrag.yaml")

	for _, p := range candidates {
		if p != "" && exists(p) {
			return p
		}
	}
	return ""
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// intStr returns "" for zero.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// boolStr returns "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
