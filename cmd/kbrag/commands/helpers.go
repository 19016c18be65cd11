package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/54b3r/kbrag-go/internal/embedder"
	"github.com/54b3r/kbrag-go/internal/ingestion"
	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/query"
	"github.com/54b3r/kbrag-go/internal/rag"
	"github.com/54b3r/kbrag-go/internal/server"
	"github.com/54b3r/kbrag-go/internal/store"
)

// Store backends selectable with KBRAG_STORE.
const (
	storeSQLite = "sqlite"
	storeMemory = "memory"
	storeQdrant = "qdrant"
)

// backend bundles the opened store with the probes that describe it.
type backend struct {
	store   rag.Store
	pingers []server.Pinger
}

func (b *backend) Close() error { return b.store.Close() }

// openBackend validates the embedding configuration and opens the store
// selected by KBRAG_STORE.
func openBackend(log *slog.Logger) (*backend, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	embPinger := server.NewEmbedderPinger(emb, "embedder")

	kind := getEnvOrDefault("KBRAG_STORE", storeSQLite)
	switch kind {
	case storeSQLite:
		path := os.Getenv("KBRAG_DB_PATH")
		if path == "" {
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, err
			}
		}
		s, err := store.Open(path, emb)
		if err != nil {
			return nil, err
		}
		log.Debug("store opened", slog.String("backend", kind), slog.String("path", path))
		return &backend{store: s, pingers: []server.Pinger{server.NewFuncPinger("sqlite", s.Ping), embPinger}}, nil

	case storeMemory:
		s, err := rag.NewMemoryStore(emb)
		if err != nil {
			return nil, err
		}
		log.Warn("store: using the in-memory store, contents are lost on exit")
		return &backend{store: s, pingers: []server.Pinger{embPinger}}, nil

	case storeQdrant:
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		s, err := rag.NewQdrantStore(&rag.QdrantConfig{
			Host:       host,
			Port:       port,
			VectorSize: uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		}, emb)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Debug("store opened", slog.String("backend", kind), slog.String("host", host), slog.Int("port", port))
		return &backend{store: s, pingers: []server.Pinger{server.NewQdrantPinger(s.Client()), embPinger}}, nil

	default:
		return nil, fmt.Errorf("unknown KBRAG_STORE %q (valid: sqlite, memory, qdrant)", kind)
	}
}

// collectionName returns KBRAG_COLLECTION or the default collection.
func collectionName() string {
	return getEnvOrDefault("KBRAG_COLLECTION", knowledge.DefaultCollection)
}

// knowledgeRoot returns KBRAG_ROOT, defaulting to ./knowledge_base.
func knowledgeRoot() string {
	return getEnvOrDefault("KBRAG_ROOT", "knowledge_base")
}

// sourcesFromEnv lays the sources out under the knowledge root, applying
// per-directory overrides.
func sourcesFromEnv() ingestion.Sources {
	src := ingestion.DefaultSources(knowledgeRoot())
	if v := os.Getenv("KBRAG_DATA_EXAMPLES_DIR"); v != "" {
		src.DataExamplesDir = v
	}
	if v := os.Getenv("KBRAG_TRANSCRIPTS_DIR"); v != "" {
		src.TranscriptsDir = v
	}
	if v := os.Getenv("KBRAG_EXTRACTED_JSON"); v != "" {
		src.ExtractedJSON = v
	}
	return src
}

// schemaDir returns KBRAG_SCHEMA_DIR, defaulting to <root>/schemas.
func schemaDir() string {
	return getEnvOrDefault("KBRAG_SCHEMA_DIR", filepath.Join(knowledgeRoot(), "schemas"))
}

// newPipeline builds the ingestion pipeline over b.
func newPipeline(b *backend, metrics *ingestion.Metrics) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(b.store, ingestion.Config{
		Collection: collectionName(),
		Sources:    sourcesFromEnv(),
		Metrics:    metrics,
	})
}

// newQueryService builds the query service over b.
func newQueryService(b *backend, metrics *query.Metrics) (*query.Service, error) {
	return query.NewService(b.store, query.Config{
		Collection: collectionName(),
		Metrics:    metrics,
	})
}

// withBackend opens the backend, runs fn, and closes it.
func withBackend(ctx context.Context, log *slog.Logger, fn func(context.Context, *backend) error) error {
	b, err := openBackend(log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.Warn("store close failed", slog.Any("error", cerr))
		}
	}()
	return fn(ctx, b)
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
