package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// Reserved payload keys. Qdrant point IDs must be UUIDs or integers, so the
// record ID travels in the payload and the point ID is derived from it.
const (
	payloadRecordID = "record_id"
	payloadDocument = "document"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of the embeddings stored in new collections.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements Store backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// embedder computes vectors for upserts and queries.
	embedder Embedder
}

// NewQdrantStore connects to Qdrant and returns a ready-to-use Store.
func NewQdrantStore(cfg *QdrantConfig, e Embedder) (*QdrantStore, error) {
	if e == nil {
		return nil, fmt.Errorf("qdrant: embedder must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg, embedder: e}, nil
}

// Client exposes the underlying client for health probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// Create implements Store.
func (s *QdrantStore) Create(ctx context.Context, name string) (Collection, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	if err := s.createCollection(ctx, name); err != nil {
		return nil, err
	}
	return s.collection(name), nil
}

// Delete implements Store.
func (s *QdrantStore) Delete(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("qdrant: collection %q: %w", name, knowledge.ErrNotFound)
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: failed to delete collection %q: %w", name, err)
	}
	return nil
}

// GetOrCreate implements Store.
func (s *QdrantStore) GetOrCreate(ctx context.Context, name string) (Collection, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		if err := s.createCollection(ctx, name); err != nil {
			return nil, err
		}
	}
	return s.collection(name), nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) createCollection(ctx context.Context, name string) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}
	return nil
}

func (s *QdrantStore) collection(name string) *qdrantCollection {
	return &qdrantCollection{client: s.client, name: name, embedder: s.embedder}
}

type qdrantCollection struct {
	client   *qdrant.Client
	name     string
	embedder Embedder
}

func (c *qdrantCollection) Name() string { return c.name }

// Upsert embeds the records and writes them as points. Point IDs are a
// name-based UUID of the record ID, so re-upserting an ID overwrites it.
func (c *qdrantCollection) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vecs, err := EmbedRecords(ctx, c.embedder, records)
	if err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, r := range records {
		payload := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[payloadRecordID] = r.ID
		payload[payloadDocument] = r.Document

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(vecs[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Query performs a cosine similarity search. Qdrant reports similarity, so
// the returned distance is 1 - score.
func (c *qdrantCollection) Query(ctx context.Context, text string, n int, where Where) ([]Match, error) {
	if n <= 0 {
		return nil, nil
	}
	vec, err := EmbedQuery(ctx, c.embedder, text)
	if err != nil {
		return nil, err
	}

	limit := uint64(n)
	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		Filter:         qdrantFilter(where),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Distance: 1 - float64(r.Score), Metadata: knowledge.Flat{}}
		for k, v := range r.GetPayload() {
			switch k {
			case payloadRecordID:
				m.ID = v.GetStringValue()
			case payloadDocument:
				m.Document = v.GetStringValue()
			default:
				m.Metadata[k] = payloadScalar(v)
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c *qdrantCollection) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.name,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(n), nil //nolint:gosec // collection sizes fit in int
}

// PointID maps a record ID to the deterministic UUID used as its point ID.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// qdrantFilter translates a Where into a Must filter of exact matches.
func qdrantFilter(where Where) *qdrant.Filter {
	if len(where) == 0 {
		return nil
	}
	conds := make([]*qdrant.Condition, 0, len(where))
	for k, v := range where {
		switch val := v.(type) {
		case int:
			conds = append(conds, qdrant.NewMatchInt(k, int64(val)))
		case int64:
			conds = append(conds, qdrant.NewMatchInt(k, val))
		case bool:
			conds = append(conds, qdrant.NewMatchBool(k, val))
		default:
			conds = append(conds, qdrant.NewMatch(k, fmt.Sprint(val)))
		}
	}
	return &qdrant.Filter{Must: conds}
}

// payloadScalar unwraps a payload value into a Go scalar.
func payloadScalar(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}
