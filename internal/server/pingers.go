package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/kbrag-go/internal/rag"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// FuncPinger adapts a Ping function, such as (*store.SQLiteStore).Ping.
type FuncPinger struct {
	name string
	ping func(ctx context.Context) error
}

// NewFuncPinger returns a Pinger named name that calls ping.
func NewFuncPinger(name string, ping func(ctx context.Context) error) *FuncPinger {
	return &FuncPinger{name: name, ping: ping}
}

// Name returns the dependency label used in readiness responses.
func (p *FuncPinger) Name() string { return p.name }

// Ping calls the wrapped function.
func (p *FuncPinger) Ping(ctx context.Context) error { return p.ping(ctx) }

// EmbedderPinger probes the embedding backend by embedding a single short
// text. For local backends this costs nothing; for hosted ones it is one
// minimal request.
type EmbedderPinger struct {
	embedder rag.Embedder
	name     string
}

// NewEmbedderPinger constructs an EmbedderPinger labelled name.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds "ping" and checks a non-empty vector came back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vec, err := rag.EmbedQuery(ctx, p.embedder, "ping")
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedder returned an empty vector")
	}
	return nil
}
