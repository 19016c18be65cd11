package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbrag-go/internal/query"
)

// MethodologyTool returns the agency methodology for a task type.
type MethodologyTool struct {
	k Knowledge
}

// NewMethodologyTool constructs a MethodologyTool over k.
func NewMethodologyTool(k Knowledge) *MethodologyTool {
	return &MethodologyTool{k: k}
}

func (t *MethodologyTool) Name() string { return "get_methodology" }

func (t *MethodologyTool) Description() string {
	return "Get methodology and best practices for a specific task type."
}

func (t *MethodologyTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"task_type": {
				Type:     schema.String,
				Desc:     "Task type. Other values are used as free-text queries.",
				Enum:     []string{query.TaskKeywordResearch, query.TaskAdCopy, query.TaskCampaignStructure, query.TaskAudit},
				Required: true,
			},
		}),
	}, nil
}

func (t *MethodologyTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var in struct {
		TaskType string `json:"task_type"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("get_methodology: invalid input: %w", err)
	}
	if in.TaskType == "" {
		return "", fmt.Errorf("get_methodology: task_type is required")
	}
	return t.k.Methodology(ctx, in.TaskType), nil
}

// ListExamplesTool lists the client analyses in the knowledge base.
type ListExamplesTool struct{}

// NewListExamplesTool constructs a ListExamplesTool.
func NewListExamplesTool() *ListExamplesTool { return &ListExamplesTool{} }

func (t *ListExamplesTool) Name() string { return "list_examples" }

func (t *ListExamplesTool) Description() string {
	return "List all available example analyses from previous clients."
}

func (t *ListExamplesTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

func (t *ListExamplesTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	return query.ListExamples(), nil
}

// ExampleTool returns the case study of one client.
type ExampleTool struct {
	k Knowledge
}

// NewExampleTool constructs an ExampleTool over k.
func NewExampleTool(k Knowledge) *ExampleTool {
	return &ExampleTool{k: k}
}

func (t *ExampleTool) Name() string { return "get_example" }

func (t *ExampleTool) Description() string {
	return "Get the case study of a client example: campaign structure, keywords and ad copy patterns."
}

func (t *ExampleTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"client_name": {
				Type:     schema.String,
				Desc:     `Client name as listed by list_examples, e.g. "spacefinder".`,
				Required: true,
			},
		}),
	}, nil
}

func (t *ExampleTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var in struct {
		ClientName string `json:"client_name"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("get_example: invalid input: %w", err)
	}
	if in.ClientName == "" {
		return "", fmt.Errorf("get_example: client_name is required")
	}
	return t.k.CaseStudy(ctx, in.ClientName), nil
}
