// Package tools exposes the knowledge base to eino agents. Each tool
// satisfies eino's tool.InvokableTool so it can be registered directly with
// a ChatModelAgent or a ToolsNode, and returns the same text the MCP tools
// return.
package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"

	"github.com/54b3r/kbrag-go/internal/query"
)

// Knowledge is the query surface the tools call. *query.Service satisfies it.
type Knowledge interface {
	// Search runs a query and returns the reranked results.
	Search(ctx context.Context, req query.Request) ([]query.Result, error)

	// Methodology returns the methodology chunks for a task type.
	Methodology(ctx context.Context, task string) string

	// CaseStudy returns the case-study chunks for a client.
	CaseStudy(ctx context.Context, client string) string
}

// KnowledgeTool is the interface shared by every tool in this package. It
// adds a Name accessor to eino's contract so callers can log and route tool
// calls without fetching Info.
type KnowledgeTool interface {
	tool.InvokableTool

	// Name returns the unique tool name.
	Name() string

	// Description returns the LLM-facing description.
	Description() string
}

// All returns every knowledge tool backed by k, in registration order.
func All(k Knowledge) []KnowledgeTool {
	return []KnowledgeTool{
		NewQueryTool(k),
		NewMethodologyTool(k),
		NewListExamplesTool(),
		NewExampleTool(k),
	}
}

// BaseTools converts ts for APIs that take eino's tool.BaseTool slice.
func BaseTools(ts []KnowledgeTool) []tool.BaseTool {
	out := make([]tool.BaseTool, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}
