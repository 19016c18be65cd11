package query

import (
	"slices"

	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/rag"
)

// Rerank weights.
const (
	agencyBoost     = 0.2
	priorityWeight  = 0.1
	relevanceWeight = 0.05
)

// Result is a reranked match. Lower Score is better.
type Result struct {
	ID       string
	Document string
	Metadata knowledge.Flat
	Distance float64
	Score    float64
}

// Score adjusts the raw distance of m by provenance, priority and relevance.
// A missing priority counts as 1 and a missing relevance score as 0.
func Score(m rag.Match, boostAgency bool) float64 {
	score := m.Distance
	if boostAgency && m.Metadata.String(knowledge.KeySourceKind) == string(knowledge.KindAgency) {
		score -= agencyBoost
	}
	score -= priorityWeight * (m.Metadata.Float(knowledge.KeyPriority, 1) - 1)
	score -= relevanceWeight * m.Metadata.Float(knowledge.KeyRelevanceScore, 0)
	return score
}

// Rerank scores matches and sorts them ascending by score. Equal scores keep
// the store's order.
func Rerank(matches []rag.Match, boostAgency bool) []Result {
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		out = append(out, Result{
			ID:       m.ID,
			Document: m.Document,
			Metadata: m.Metadata,
			Distance: m.Distance,
			Score:    Score(m, boostAgency),
		})
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
	return out
}
