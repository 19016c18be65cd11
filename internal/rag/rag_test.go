package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// axisEmbedder maps each known word to its own axis so similarity is easy
// to reason about in tests.
type axisEmbedder struct {
	vocab []string
	err   error
	calls int
}

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			vec[j] = float32(strings.Count(strings.ToLower(t), w))
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T) (*MemoryStore, *axisEmbedder) {
	t.Helper()
	emb := &axisEmbedder{vocab: []string{"match", "budget", "bidding"}}
	s, err := NewMemoryStore(emb)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return s, emb
}

func TestMemoryStore_CollectionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.Create(ctx, "kb"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, "kb"); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("second Create: got %v, want ErrCollectionExists", err)
	}
	if err := s.Delete(ctx, "kb"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "kb"); !errors.Is(err, knowledge.ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
	c1, err := s.GetOrCreate(ctx, "kb")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	c2, _ := s.GetOrCreate(ctx, "kb")
	if c1 != c2 {
		t.Error("GetOrCreate returned a different handle for the same name")
	}
}

func TestMemoryCollection_UpsertReplacesByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)
	c, _ := s.GetOrCreate(ctx, "kb")

	err := c.Upsert(ctx, []Record{
		{ID: "a", Document: "match match", Metadata: knowledge.Flat{"topic": "x"}},
		{ID: "b", Document: "budget", Metadata: knowledge.Flat{"topic": "y"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := c.Upsert(ctx, []Record{{ID: "a", Document: "bidding", Metadata: knowledge.Flat{"topic": "z"}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, _ := c.Count(ctx)
	if n != 2 {
		t.Fatalf("Count: got %d, want 2", n)
	}

	got, err := c.Query(ctx, "bidding", 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" || got[0].Document != "bidding" || got[0].Metadata["topic"] != "z" {
		t.Errorf("unexpected match %+v", got)
	}
	if math.Abs(got[0].Distance) > 1e-9 {
		t.Errorf("Distance: got %v, want 0", got[0].Distance)
	}
}

func TestMemoryCollection_QueryOrderAndFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)
	c, _ := s.GetOrCreate(ctx, "kb")

	_ = c.Upsert(ctx, []Record{
		{ID: "far", Document: "budget", Metadata: knowledge.Flat{"content_type": "methodology"}},
		{ID: "near", Document: "match", Metadata: knowledge.Flat{"content_type": "warning"}},
		{ID: "mid", Document: "match budget", Metadata: knowledge.Flat{"content_type": "methodology", "priority": 2}},
	})

	got, _ := c.Query(ctx, "match", 10, nil)
	var order []string
	for _, m := range got {
		order = append(order, m.ID)
	}
	if strings.Join(order, ",") != "near,mid,far" {
		t.Errorf("order: got %v", order)
	}

	got, _ = c.Query(ctx, "match", 10, Where{"content_type": "methodology"})
	for _, m := range got {
		if m.Metadata["content_type"] != "methodology" {
			t.Errorf("filter leaked %+v", m)
		}
	}
	if len(got) != 2 {
		t.Errorf("filtered: got %d matches, want 2", len(got))
	}

	got, _ = c.Query(ctx, "match", 10, Where{"content_type": "methodology", "priority": 2})
	if len(got) != 1 || got[0].ID != "mid" {
		t.Errorf("AND filter: got %+v", got)
	}

	got, _ = c.Query(ctx, "match", 1, nil)
	if len(got) != 1 {
		t.Errorf("n=1: got %d matches", len(got))
	}
}

func TestMemoryCollection_EmbedErrorPropagates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, emb := newTestStore(t)
	c, _ := s.GetOrCreate(ctx, "kb")
	emb.err = errors.New("model offline")

	if err := c.Upsert(ctx, []Record{{ID: "a", Document: "x"}}); err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Errorf("Upsert: got %v", err)
	}
	if _, err := c.Query(ctx, "x", 3, nil); err == nil {
		t.Error("Query: expected error")
	}
}

func TestCosineDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{2, 4}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		if got := CosineDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWhere_Matches(t *testing.T) {
	t.Parallel()

	meta := knowledge.Flat{"topic": "bidding", "priority": int64(2)}
	if !Where(nil).Matches(meta) {
		t.Error("nil Where should match")
	}
	if !(Where{"priority": 2}).Matches(meta) {
		t.Error("int and int64 should compare equal")
	}
	if (Where{"topic": "budgeting"}).Matches(meta) {
		t.Error("wrong topic matched")
	}
	if (Where{"missing": "x"}).Matches(meta) {
		t.Error("missing key matched")
	}
}

func TestPointID_Deterministic(t *testing.T) {
	t.Parallel()

	a := PointID("notes-txt-1a2b3c4d")
	if a != PointID("notes-txt-1a2b3c4d") {
		t.Error("PointID is not deterministic")
	}
	if a == PointID("notes-txt-ffffffff") {
		t.Error("distinct IDs collided")
	}
	if len(a) != 36 {
		t.Errorf("not a UUID: %q", a)
	}
}

func TestQdrantFilter(t *testing.T) {
	t.Parallel()

	if qdrantFilter(nil) != nil {
		t.Error("empty Where should produce no filter")
	}
	f := qdrantFilter(Where{"topic": "bidding", "priority": 2})
	if len(f.GetMust()) != 2 {
		t.Errorf("got %d conditions, want 2", len(f.GetMust()))
	}
}

func TestPayloadScalar(t *testing.T) {
	t.Parallel()

	vals := qdrant.NewValueMap(map[string]any{
		"s": "x",
		"i": 2,
		"f": 0.95,
		"b": true,
	})
	if payloadScalar(vals["s"]) != "x" {
		t.Error("string")
	}
	if payloadScalar(vals["i"]) != int64(2) {
		t.Error("integer")
	}
	if payloadScalar(vals["f"]) != 0.95 {
		t.Error("double")
	}
	if payloadScalar(vals["b"]) != true {
		t.Error("bool")
	}
}
