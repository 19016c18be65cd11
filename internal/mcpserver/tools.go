package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/kbrag-go/internal/query"
)

// QueryInput is the input schema for query_knowledge.
type QueryInput struct {
	Query       string `json:"query" jsonschema:"natural language query, e.g. match type rules for phrase match"`
	NResults    int    `json:"n_results,omitempty" jsonschema:"number of results to return (default 10)"`
	FilterType  string `json:"filter_type,omitempty" jsonschema:"deprecated alias; use content_type"`
	Topic       string `json:"topic,omitempty" jsonschema:"optional topic filter, e.g. keyword_match_types"`
	ContentType string `json:"content_type,omitempty" jsonschema:"optional filter: case_study, methodology, example, warning or best_practice"`
	BoostAgency *bool  `json:"boost_agency,omitempty" jsonschema:"prioritise agency-authored content (default true)"`
}

// MethodologyInput is the input schema for get_methodology.
type MethodologyInput struct {
	TaskType string `json:"task_type" jsonschema:"one of keyword_research, ad_copy, campaign_structure, audit"`
}

// ExampleInput is the input schema for get_example.
type ExampleInput struct {
	ClientName string `json:"client_name" jsonschema:"client name, e.g. spacefinder or karim_design"`
}

// SchemaInput is the input schema for get_deliverable_schema.
type SchemaInput struct {
	SchemaType string `json:"schema_type" jsonschema:"keyword_analysis, campaign_structure, ad_copy, roi_calculator, or all"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_knowledge",
		Description: "Semantic search over the Google Ads knowledge base with metadata-aware ranking.",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_methodology",
		Description: "Get methodology and best practices for a specific task type.",
	}, s.handleMethodology)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_examples",
		Description: "List all available example analyses from previous clients.",
	}, s.handleListExamples)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_example",
		Description: "Get the case study of a client example: campaign structure, keywords and ad copy patterns.",
	}, s.handleExample)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_deliverable_schema",
		Description: "Get the official schema for a deliverable tab.",
	}, s.handleSchema)
}

// textResult wraps a rendered string as tool output.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
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
	return textResult(s.ports.Knowledge.QueryKnowledge(ctx, req)), nil, nil
}

func (s *Server) handleMethodology(ctx context.Context, _ *mcp.CallToolRequest, in MethodologyInput) (*mcp.CallToolResult, any, error) {
	return textResult(s.ports.Knowledge.Methodology(ctx, in.TaskType)), nil, nil
}

func (s *Server) handleListExamples(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return textResult(query.ListExamples()), nil, nil
}

func (s *Server) handleExample(ctx context.Context, _ *mcp.CallToolRequest, in ExampleInput) (*mcp.CallToolResult, any, error) {
	return textResult(s.ports.Knowledge.CaseStudy(ctx, in.ClientName)), nil, nil
}

func (s *Server) handleSchema(_ context.Context, _ *mcp.CallToolRequest, in SchemaInput) (*mcp.CallToolResult, any, error) {
	return textResult(DeliverableSchema(s.ports.SchemaDir, in.SchemaType)), nil, nil
}
