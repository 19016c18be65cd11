package rag

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// MemoryStore is a process-local Store using brute-force cosine search.
// Contents are lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	embedder    Embedder
	collections map[string]*memoryCollection
}

// NewMemoryStore returns an empty MemoryStore that embeds with e.
func NewMemoryStore(e Embedder) (*MemoryStore, error) {
	if e == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	return &MemoryStore{embedder: e, collections: make(map[string]*memoryCollection)}, nil
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	c := newMemoryCollection(name, s.embedder)
	s.collections[name] = c
	return c, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("rag: collection %q: %w", name, knowledge.ErrNotFound)
	}
	delete(s.collections, name)
	return nil
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := newMemoryCollection(name, s.embedder)
	s.collections[name] = c
	return c, nil
}

// Close implements Store. It is a no-op.
func (s *MemoryStore) Close() error { return nil }

type memoryEntry struct {
	record Record
	vector []float32
}

type memoryCollection struct {
	name     string
	embedder Embedder

	mu      sync.RWMutex
	index   map[string]int
	entries []memoryEntry
}

func newMemoryCollection(name string, e Embedder) *memoryCollection {
	return &memoryCollection{name: name, embedder: e, index: make(map[string]int)}
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vecs, err := EmbedRecords(ctx, c.embedder, records)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range records {
		r.Metadata = maps.Clone(r.Metadata)
		entry := memoryEntry{record: r, vector: vecs[i]}
		if pos, ok := c.index[r.ID]; ok {
			c.entries[pos] = entry
			continue
		}
		c.index[r.ID] = len(c.entries)
		c.entries = append(c.entries, entry)
	}
	return nil
}

func (c *memoryCollection) Query(ctx context.Context, text string, n int, where Where) ([]Match, error) {
	vec, err := EmbedQuery(ctx, c.embedder, text)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var candidates []Match
	for _, e := range c.entries {
		if !where.Matches(e.record.Metadata) {
			continue
		}
		candidates = append(candidates, Match{
			ID:       e.record.ID,
			Document: e.record.Document,
			Metadata: maps.Clone(e.record.Metadata),
			Distance: CosineDistance(vec, e.vector),
		})
	}
	return Nearest(candidates, n), nil
}

func (c *memoryCollection) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}
