package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbrag-go/internal/budget"
	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/query"
)

// QueryTool is an eino tool that runs a semantic search over the knowledge
// base with metadata-aware ranking.
// Results past the token budget are dropped from the tail.
type QueryTool struct {
	k         Knowledge
	maxTokens int
}

// queryInput is the JSON input of QueryTool. BoostAgency is a pointer so an
// absent field keeps the default of true.
type queryInput struct {
	Query       string `json:"query"`
	NResults    int    `json:"n_results,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FilterType  string `json:"filter_type,omitempty"`
	Topic       string `json:"topic,omitempty"`
	BoostAgency *bool  `json:"boost_agency,omitempty"`
}

// NewQueryTool constructs a QueryTool over k with budget.DefaultMaxTokens.
func NewQueryTool(k Knowledge) *QueryTool {
	return &QueryTool{k: k, maxTokens: budget.DefaultMaxTokens}
}

// WithMaxTokens sets the result budget. n <= 0 disables trimming.
func (t *QueryTool) WithMaxTokens(n int) *QueryTool {
	t.maxTokens = n
	return t
}

// Name returns the tool name registered with the agent.
func (t *QueryTool) Name() string { return "query_knowledge" }

// Description returns the LLM-facing description of this tool.
func (t *QueryTool) Description() string {
	return "Semantic search over the Google Ads knowledge base with metadata-aware ranking. " +
		"Use this before starting a task to pull relevant methodology, case studies and best practices."
}

// Info returns the eino tool metadata including the JSON input schema.
func (t *QueryTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     `Natural language query, e.g. "match type rules for phrase match".`,
				Required: true,
			},
			"n_results": {
				Type: schema.Integer,
				Desc: "Number of results to return. Defaults to 10.",
			},
			"content_type": {
				Type: schema.String,
				Desc: "Optional filter.",
				Enum: []string{"case_study", "methodology", "example", "warning", "best_practice"},
			},
			"filter_type": {
				Type: schema.String,
				Desc: "Deprecated alias of content_type.",
			},
			"topic": {
				Type: schema.String,
				Desc: `Optional topic filter, e.g. "keyword_match_types".`,
			},
			"boost_agency": {
				Type: schema.Boolean,
				Desc: "Prioritise agency-authored content. Defaults to true.",
			},
		}),
	}, nil
}

// InvokableRun decodes the arguments and returns the rendered results. A
// store failure is reported in the text, like the MCP tool does.
func (t *QueryTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var in queryInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("query_knowledge: invalid input: %w", err)
	}
	if in.Query == "" {
		return "", fmt.Errorf("query_knowledge: query is required")
	}

	req := query.NewRequest(in.Query)
	if in.NResults > 0 {
		req.N = in.NResults
	}
	req.ContentType = in.ContentType
	req.FilterType = in.FilterType
	req.Topic = in.Topic
	if in.BoostAgency != nil {
		req.BoostAgency = *in.BoostAgency
	}

	log := logging.FromContext(ctx)
	results, err := t.k.Search(ctx, req)
	if err != nil {
		log.Warn("query_knowledge: search failed", slog.String("error", err.Error()))
		return query.FormatError(err), nil
	}
	if len(results) == 0 {
		return query.NoResults, nil
	}

	blocks := query.FormatBlocks(results)
	kept := budget.Fit(blocks, query.ResultSeparator, t.maxTokens)
	if dropped := len(blocks) - len(kept); dropped > 0 {
		log.Debug("query_knowledge: trimmed results to token budget",
			slog.Int("dropped", dropped),
			slog.Int("max_tokens", t.maxTokens),
		)
	}
	return strings.Join(kept, query.ResultSeparator), nil
}
