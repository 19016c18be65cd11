// Package rag defines the vector store contract consumed by the ingestion
// pipeline and the query service, along with the in-memory and Qdrant
// backends. A store owns named collections; each collection accepts
// (id, document, metadata) records, embeds documents itself through an
// injected [Embedder], and answers nearest-neighbour queries by distance.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// ErrCollectionExists is returned by Create when the collection is present.
var ErrCollectionExists = errors.New("rag: collection already exists")

// Record is a unit written to a collection. Upserting a record whose ID is
// already present replaces it.
type Record struct {
	// ID is the overwrite key.
	ID string
	// Document is the text that gets embedded and returned by queries.
	Document string
	// Metadata is the flat scalar metadata stored alongside the document.
	Metadata knowledge.Flat
}

// Match is a single nearest-neighbour result.
type Match struct {
	// ID is the record ID.
	ID string
	// Document is the stored text.
	Document string
	// Metadata is the stored flat metadata.
	Metadata knowledge.Flat
	// Distance is the cosine distance to the query (lower is closer).
	Distance float64
}

// Where is an AND-combined set of exact-match metadata constraints. A nil or
// empty Where matches every record.
type Where map[string]any

// Matches reports whether meta satisfies every constraint in w.
func (w Where) Matches(meta knowledge.Flat) bool {
	for k, want := range w {
		got, ok := meta[k]
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// scalarEqual compares by rendered value so 2, int64(2) and 2.0 agree.
func scalarEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Collection is a named set of records.
// Implementations must be safe to call from multiple goroutines.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Upsert embeds and stores records, replacing any with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query embeds text and returns up to n records nearest to it that
	// satisfy where, ordered by ascending distance.
	Query(ctx context.Context, text string, n int, where Where) ([]Match, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// Store manages collections.
// Implementations must be safe to call from multiple goroutines.
type Store interface {
	// Create makes a new empty collection. It returns ErrCollectionExists
	// if one with the same name is present.
	Create(ctx context.Context, name string) (Collection, error)

	// Delete removes a collection and all of its records. It returns an
	// error wrapping knowledge.ErrNotFound if the collection is absent.
	Delete(ctx context.Context, name string) error

	// GetOrCreate returns the named collection, creating it if needed.
	GetOrCreate(ctx context.Context, name string) (Collection, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedQuery embeds a single query text with e.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}
	return vecs[0], nil
}

// EmbedRecords embeds the documents of records with e, checking that one
// vector came back per record.
func EmbedRecords(ctx context.Context, e Embedder, records []Record) ([][]float32, error) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Document
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding documents failed: %w", err)
	}
	if len(vecs) != len(records) {
		return nil, fmt.Errorf("rag: expected %d embeddings, got %d", len(records), len(vecs))
	}
	return vecs, nil
}
