package query

import (
	"context"
	"fmt"
	"maps"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// Metadata keys added to retrieved documents.
const (
	MetaDistance = "distance"
	MetaScore    = "rerank_score"
)

// Retriever adapts a Service to eino's retriever.Retriever so the knowledge
// base can be composed into eino chains and graphs.
//
// Document scores follow eino's convention (higher is better) and are
// 1 - rerank score. The raw distance and rerank score are kept in MetaData.
// retriever.WithDSLInfo accepts "content_type" and "topic" filters.
type Retriever struct {
	svc         *Service
	defaultTopK int
	boostAgency bool
}

var _ retriever.Retriever = (*Retriever)(nil)

// NewRetriever wraps svc. defaultTopK <= 0 selects DefaultN.
func NewRetriever(svc *Service, defaultTopK int, boostAgency bool) (*Retriever, error) {
	if svc == nil {
		return nil, fmt.Errorf("query: service must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultN
	}
	return &Retriever{svc: svc, defaultTopK: defaultTopK, boostAgency: boostAgency}, nil
}

// Retrieve implements retriever.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := r.defaultTopK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)

	req := Request{Query: query, N: topK, BoostAgency: r.boostAgency}
	if o.TopK != nil {
		req.N = *o.TopK
	}
	if ct, ok := o.DSLInfo[knowledge.KeyContentType].(string); ok {
		req.ContentType = ct
	}
	if t, ok := o.DSLInfo[knowledge.KeyTopic].(string); ok {
		req.Topic = t
	}

	results, err := r.svc.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(results))
	for _, res := range results {
		score := 1 - res.Score
		if o.ScoreThreshold != nil && score < *o.ScoreThreshold {
			continue
		}
		meta := make(map[string]any, len(res.Metadata)+2)
		maps.Copy(meta, res.Metadata)
		meta[MetaDistance] = res.Distance
		meta[MetaScore] = res.Score
		docs = append(docs, (&schema.Document{ID: res.ID, Content: res.Document, MetaData: meta}).WithScore(score))
	}
	return docs, nil
}
