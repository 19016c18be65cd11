package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/kbrag-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ, override with EMBEDDING_DIMENSIONS.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// backendDefault is used when EMBEDDING_PROVIDER is unset. The hash
// backend is opt-in only.
const backendDefault = "ollama"

// Backend returns the configured embedding backend name (default: ollama).
func Backend() string {
	return getEnvOrDefault("EMBEDDING_PROVIDER", backendDefault)
}

// DefaultDimensions returns the embedding vector size for the given backend.
// Callers that pre-size a vector store (Qdrant collection creation) should use
// this rather than hardcoding a value. EMBEDDING_DIMENSIONS always takes
// precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "hash":
		return defaultHashDimensions
	case "ollama", "":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// NewFromEnv constructs a rag.Embedder from environment variables.
//
//  1. EMBEDDING_PROVIDER selects the backend: ollama (default), openai, azure,
//     or hash for offline use and tests
//  2. EMBEDDING_MODEL overrides the default model for the backend
//  3. EMBEDDING_API_KEY overrides the backend's API key variable
//  4. EMBEDDING_ENDPOINT overrides the backend's base URL
//  5. EMBEDDING_DIMENSIONS overrides the default vector length
//  6. EMBEDDING_BATCH_SIZE caps texts per remote request (default: 64)
func NewFromEnv() (rag.Embedder, error) {
	backend := Backend()
	batch := getEnvInt("EMBEDDING_BATCH_SIZE", defaultBatchSize)

	switch backend {
	case "hash":
		return NewHashEmbedder(DefaultDimensions(backend)), nil

	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:      host,
			Model:     getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
			BatchSize: batch,
		}), nil

	case "openai":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    getEnvOrDefault("EMBEDDING_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
			BatchSize:  batch,
		}), nil

	case "azure":
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("AZURE_OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := getEnv("EMBEDDING_ENDPOINT")
		if endpoint == "" {
			endpoint = getEnv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
			Azure:      true,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
			BatchSize:  batch,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: hash, ollama, openai, azure)", backend)
	}
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
