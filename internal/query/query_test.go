package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/54b3r/kbrag-go/internal/embedder"
	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/rag"
)

// fakeStore serves fixed matches from a single collection and records the
// last query it received.
type fakeStore struct {
	matches []rag.Match
	err     error

	lastN     int
	lastWhere rag.Where
}

func (s *fakeStore) Create(context.Context, string) (rag.Collection, error) { return s, nil }
func (s *fakeStore) Delete(context.Context, string) error                    { return nil }
func (s *fakeStore) GetOrCreate(context.Context, string) (rag.Collection, error) {
	return s, nil
}
func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) Name() string                                { return "fake" }
func (s *fakeStore) Upsert(context.Context, []rag.Record) error  { return nil }
func (s *fakeStore) Count(context.Context) (int, error)           { return len(s.matches), s.err }
func (s *fakeStore) Query(_ context.Context, _ string, n int, where rag.Where) ([]rag.Match, error) {
	s.lastN, s.lastWhere = n, where
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func newService(t *testing.T, store rag.Store) *Service {
	t.Helper()
	svc, err := NewService(store, Config{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_NilStore(t *testing.T) {
	t.Parallel()
	if _, err := NewService(nil, Config{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		meta  knowledge.Flat
		boost bool
		want  float64
	}{
		{"no metadata", knowledge.Flat{}, true, 0.5},
		{"agency boosted", knowledge.Flat{"source_kind": "agency"}, true, 0.3},
		{"agency not boosted", knowledge.Flat{"source_kind": "agency"}, false, 0.5},
		{"priority two", knowledge.Flat{"priority": 2}, false, 0.4},
		{"relevance", knowledge.Flat{"relevance_score": 1.0}, false, 0.45},
		{"all terms", knowledge.Flat{"source_kind": "agency", "priority": int64(2), "relevance_score": 0.95}, true, 0.5 - 0.2 - 0.1 - 0.0475},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Score(rag.Match{Distance: 0.5, Metadata: tt.meta}, tt.boost)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRerank_AgencyAheadAtEqualDistance(t *testing.T) {
	t.Parallel()

	matches := []rag.Match{
		{ID: "course", Distance: 0.4, Metadata: knowledge.Flat{"source_kind": "course", "priority": 1, "relevance_score": 0.7}},
		{ID: "agency", Distance: 0.4, Metadata: knowledge.Flat{"source_kind": "agency", "priority": 1, "relevance_score": 0.7}},
	}
	got := Rerank(matches, true)
	if got[0].ID != "agency" {
		t.Errorf("want agency first, got %s", got[0].ID)
	}
	if got[0].Score >= got[1].Score {
		t.Errorf("agency score %v should be strictly lower than %v", got[0].Score, got[1].Score)
	}

	unboosted := Rerank(matches, false)
	if unboosted[0].ID != "course" {
		t.Errorf("without boost, equal scores keep store order, got %s first", unboosted[0].ID)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Document: "Use phrase match.", Score: 0.12345, Metadata: knowledge.Flat{"content_type": "methodology", "source": "notes.md", "topic": "keyword_match_types"}},
		{Document: "Old row.", Score: -0.2, Metadata: knowledge.Flat{"type": "legacy"}},
		{Document: "Bare.", Score: 1},
	}
	want := "**[methodology] notes.md** (topic: keyword_match_types, score: 0.123)\nUse phrase match.\n" +
		"\n---\n" +
		"**[legacy] Unknown** (topic: , score: -0.200)\nOld row.\n" +
		"\n---\n" +
		"**[Unknown] Unknown** (topic: , score: 1.000)\nBare.\n"
	if got := Format(results); got != want {
		t.Errorf("Format:\ngot  %q\nwant %q", got, want)
	}
	if got := Format(nil); got != NoResults {
		t.Errorf("Format(nil) = %q", got)
	}
}

func TestRequest_Where(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
		want rag.Where
	}{
		{"none", Request{}, nil},
		{"content type", Request{ContentType: "methodology"}, rag.Where{"content_type": "methodology"}},
		{"alias", Request{FilterType: "warning"}, rag.Where{"content_type": "warning"}},
		{"content type wins", Request{ContentType: "example", FilterType: "warning"}, rag.Where{"content_type": "example"}},
		{"topic", Request{Topic: "ad_copy"}, rag.Where{"topic": "ad_copy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.req.Where()
			if len(got) != len(tt.want) {
				t.Fatalf("Where = %v, want %v", got, tt.want)
			}
			if tt.want == nil && got != nil {
				t.Fatalf("Where = %v, want nil", got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Where[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestSearch_TruncatesAndDefaults(t *testing.T) {
	t.Parallel()

	store := &fakeStore{matches: []rag.Match{
		{ID: "a", Distance: 0.3},
		{ID: "b", Distance: 0.1},
		{ID: "c", Distance: 0.2},
	}}
	svc := newService(t, store)

	got, err := svc.Search(context.Background(), Request{Query: "q", N: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("got %+v", got)
	}

	if _, err := svc.Search(context.Background(), Request{Query: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastN != DefaultN {
		t.Errorf("n = %d, want %d", store.lastN, DefaultN)
	}

	if _, err := svc.Search(context.Background(), Request{Query: "  "}); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestQueryKnowledge_Strings(t *testing.T) {
	t.Parallel()

	empty := newService(t, &fakeStore{})
	if got := empty.QueryKnowledge(context.Background(), NewRequest("q")); got != NoResults {
		t.Errorf("empty: %q", got)
	}

	failing := newService(t, &fakeStore{err: errors.New("backend down")})
	got := failing.QueryKnowledge(context.Background(), NewRequest("q"))
	if !strings.HasPrefix(got, "Error querying knowledge base: ") || !strings.Contains(got, "backend down") {
		t.Errorf("error: %q", got)
	}
}

func TestShortcuts(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	svc := newService(t, store)

	svc.Methodology(context.Background(), TaskAdCopy)
	if store.lastN != 15 || store.lastWhere["content_type"] != "methodology" {
		t.Errorf("methodology: n=%d where=%v", store.lastN, store.lastWhere)
	}

	svc.CaseStudy(context.Background(), "spacefinder")
	if store.lastN != 10 || store.lastWhere["content_type"] != "case_study" {
		t.Errorf("case study: n=%d where=%v", store.lastN, store.lastWhere)
	}

	if got := MethodologyQuery("bidding"); got != "bidding" {
		t.Errorf("unknown task should pass through, got %q", got)
	}
	if got := CaseStudyQuery("haus20"); got != "haus20 campaign structure keywords ad groups" {
		t.Errorf("CaseStudyQuery = %q", got)
	}
}

func TestListExamples(t *testing.T) {
	t.Parallel()
	got := ListExamples()
	if !strings.HasPrefix(got, "# Available Example Analyses\n\n- **spacefinder**: ") {
		t.Errorf("header: %q", got)
	}
	if !strings.HasSuffix(got, "- **haus20**: Office hotel - German/Danish bilingual\n\nUse `get_example(client_name)` to get details.") {
		t.Errorf("footer: %q", got)
	}
	if strings.Count(got, "\n- **") != len(Examples) {
		t.Errorf("want %d entries", len(Examples))
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	svc := newService(t, &fakeStore{matches: make([]rag.Match, 3)})
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got != "Knowledge base contains 3 embedded documents" {
		t.Errorf("Stats = %q", got)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := &fakeStore{matches: []rag.Match{{ID: "a"}}}
	svc, err := NewService(store, Config{Metrics: m})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	svc.QueryKnowledge(context.Background(), NewRequest("q"))
	store.matches = nil
	svc.QueryKnowledge(context.Background(), NewRequest("q"))
	store.err = errors.New("boom")
	svc.QueryKnowledge(context.Background(), NewRequest("q"))

	for outcome, want := range map[string]float64{"ok": 1, "empty": 1, "error": 1} {
		if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(outcome)); got != want {
			t.Errorf("requests_total{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
}

// TestQueryKnowledge_ContentTypeFilter runs a filtered query end to end
// against the in-memory store.
func TestQueryKnowledge_ContentTypeFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := rag.NewMemoryStore(embedder.NewHashEmbedder(128))
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	coll, err := store.GetOrCreate(ctx, knowledge.DefaultCollection)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	records := []rag.Record{
		{ID: "m1", Document: "Match type rules: use phrase match for services.", Metadata: knowledge.Flat{"content_type": "methodology", "source": "a.md"}},
		{ID: "w1", Document: "Match type rules warning: never broad match alone.", Metadata: knowledge.Flat{"content_type": "warning", "source": "b.md"}},
		{ID: "m2", Document: "Campaign naming rules.", Metadata: knowledge.Flat{"content_type": "methodology", "source": "c.md"}},
		{ID: "e1", Document: "Match type rules example.", Metadata: knowledge.Flat{"content_type": "example", "source": "d.md"}},
	}
	if err := coll.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	svc := newService(t, store)
	req := NewRequest("match type rules")
	req.ContentType = knowledge.ContentMethodology
	results, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 methodology results, got %d", len(results))
	}
	for _, r := range results {
		if ct := r.Metadata.String("content_type"); ct != "methodology" {
			t.Errorf("result %s has content_type %q", r.ID, ct)
		}
	}
	if results[0].ID != "m1" {
		t.Errorf("closest methodology chunk should rank first, got %s", results[0].ID)
	}

	text := svc.QueryKnowledge(ctx, req)
	if strings.Contains(text, "[warning]") || strings.Contains(text, "[example]") {
		t.Errorf("filtered text leaked other content types:\n%s", text)
	}
}

func TestRetriever(t *testing.T) {
	t.Parallel()

	store := &fakeStore{matches: []rag.Match{
		{ID: "a", Document: "alpha", Distance: 0.1, Metadata: knowledge.Flat{"source": "a.md"}},
		{ID: "b", Document: "beta", Distance: 0.9},
	}}
	r, err := NewRetriever(newService(t, store), 0, true)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "q",
		retriever.WithTopK(5),
		retriever.WithScoreThreshold(0.5),
		retriever.WithDSLInfo(map[string]any{"topic": "ad_copy"}),
	)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.lastN != 5 || store.lastWhere["topic"] != "ad_copy" {
		t.Errorf("options not applied: n=%d where=%v", store.lastN, store.lastWhere)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Fatalf("threshold should keep only a, got %d docs", len(docs))
	}
	if s := docs[0].Score(); s < 0.899 || s > 0.901 {
		t.Errorf("score = %v, want 0.9", s)
	}
	if docs[0].MetaData["source"] != "a.md" || docs[0].MetaData[MetaDistance] != 0.1 {
		t.Errorf("metadata: %v", docs[0].MetaData)
	}

	if _, err := NewRetriever(nil, 0, true); err == nil {
		t.Error("expected error for nil service")
	}
}
