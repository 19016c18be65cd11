// Package query implements retrieval over the knowledge base: nearest
// neighbour search under exact-match metadata filters, metadata-aware
// reranking, and the markdown rendering consumed by the CLI, the HTTP API
// and the MCP tools. It also carries the fixed task templates behind the
// methodology and case-study shortcuts and an eino retriever adapter.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/rag"
)

// DefaultN is the result count used when a request does not set one.
const DefaultN = 10

// Request describes one knowledge base query.
type Request struct {
	// Query is the natural-language query text.
	Query string
	// N is the number of results. Values <= 0 select DefaultN.
	N int
	// ContentType restricts results to one content type when non-empty.
	ContentType string
	// FilterType is the deprecated spelling of ContentType. ContentType wins
	// when both are set.
	FilterType string
	// Topic restricts results to one topic when non-empty.
	Topic string
	// BoostAgency favours agency-authored chunks during reranking.
	BoostAgency bool
}

// NewRequest returns a Request for q with the default count and agency
// boosting on.
func NewRequest(q string) Request {
	return Request{Query: q, N: DefaultN, BoostAgency: true}
}

// Where builds the store filter for r. It returns nil when no filter is set.
func (r Request) Where() rag.Where {
	w := rag.Where{}
	if ct := r.contentType(); ct != "" {
		w[knowledge.KeyContentType] = ct
	}
	if r.Topic != "" {
		w[knowledge.KeyTopic] = r.Topic
	}
	if len(w) == 0 {
		return nil
	}
	return w
}

func (r Request) contentType() string {
	if r.ContentType != "" {
		return r.ContentType
	}
	return r.FilterType
}

func (r Request) n() int {
	if r.N <= 0 {
		return DefaultN
	}
	return r.N
}

// Config holds the service settings.
type Config struct {
	// Collection is the collection queried. Defaults to
	// knowledge.DefaultCollection.
	Collection string
	// Metrics is optional.
	Metrics *Metrics
}

// Service answers knowledge base queries against one collection.
type Service struct {
	store rag.Store
	cfg   Config
}

// NewService returns a Service reading from store.
func NewService(store rag.Store, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("query: store must not be nil")
	}
	if cfg.Collection == "" {
		cfg.Collection = knowledge.DefaultCollection
	}
	return &Service{store: store, cfg: cfg}, nil
}

// Collection returns the name of the queried collection.
func (s *Service) Collection() string { return s.cfg.Collection }

// collection resolves the handle per call since a rebuild replaces it.
func (s *Service) collection(ctx context.Context) (rag.Collection, error) {
	c, err := s.store.GetOrCreate(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("query: open collection %q: %w", s.cfg.Collection, err)
	}
	return c, nil
}

// Search retrieves the nearest matches for req and returns them reranked,
// best first, truncated to the requested count.
func (s *Service) Search(ctx context.Context, req Request) (results []Result, err error) {
	start := time.Now()
	defer func() { s.cfg.Metrics.observe(start, len(results), err) }()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query: query text must not be empty")
	}
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	n := req.n()
	matches, err := coll.Query(ctx, req.Query, n, req.Where())
	if err != nil {
		return nil, fmt.Errorf("query: search %q: %w", s.cfg.Collection, err)
	}
	results = Rerank(matches, req.BoostAgency)
	if len(results) > n {
		results = results[:n]
	}

	logging.FromContext(ctx).Debug("query: search complete",
		slog.String("collection", s.cfg.Collection),
		slog.Int("n", n),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// QueryKnowledge runs req and renders the results. Store failures are
// rendered as an error message, so the returned text is always usable as a
// tool or API result.
func (s *Service) QueryKnowledge(ctx context.Context, req Request) string {
	results, err := s.Search(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("query: search failed", slog.String("error", err.Error()))
		return FormatError(err)
	}
	return Format(results)
}

// Methodology returns the methodology chunks for a task type. See
// [MethodologyQuery] for the task templates.
func (s *Service) Methodology(ctx context.Context, task string) string {
	return s.QueryKnowledge(ctx, Request{
		Query:       MethodologyQuery(task),
		N:           methodologyN,
		ContentType: knowledge.ContentMethodology,
		BoostAgency: true,
	})
}

// CaseStudy returns the case-study chunks for a client.
func (s *Service) CaseStudy(ctx context.Context, client string) string {
	return s.QueryKnowledge(ctx, Request{
		Query:       CaseStudyQuery(client),
		N:           caseStudyN,
		ContentType: knowledge.ContentCaseStudy,
		BoostAgency: true,
	})
}

// Count returns the number of chunks in the collection.
func (s *Service) Count(ctx context.Context) (int, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("query: count %q: %w", s.cfg.Collection, err)
	}
	return n, nil
}

// Stats renders the chunk count as a one-line summary.
func (s *Service) Stats(ctx context.Context) (string, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Knowledge base contains %d embedded documents", n), nil
}
