// Package mcpserver exposes the knowledge base over the Model Context
// Protocol so assistants can query methodology, case studies and
// deliverable schemas while they work.
package mcpserver

import (
	"context"

	"github.com/54b3r/kbrag-go/internal/query"
)

// Knowledge is the query surface served by the MCP tools. *query.Service
// satisfies it.
type Knowledge interface {
	QueryKnowledge(ctx context.Context, req query.Request) string
	Methodology(ctx context.Context, task string) string
	CaseStudy(ctx context.Context, client string) string
	Stats(ctx context.Context) (string, error)
}

// Ports holds the services the server depends on.
type Ports struct {
	// Knowledge is required.
	Knowledge Knowledge
	// SchemaDir holds the <type>.schema.json deliverable schemas. Empty
	// disables nothing; reads simply fail with a readable message.
	SchemaDir string
}

// Validate checks that the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Knowledge == nil {
		return ErrMissingKnowledge
	}
	return nil
}
