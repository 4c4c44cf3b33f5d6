package domain

import "context"

// ToolDefinition describes the single function the model is forced to call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

type ToolRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Tool         ToolDefinition
}

type UsageStats struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CachedTokens int     `json:"cached_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ToolCall carries the raw JSON arguments produced by the model.
type ToolCall struct {
	Name      string
	Arguments string
	Usage     *UsageStats
}

// AIProvider invokes a model with a forced structured tool call.
// It returns nil, nil when the model answered without calling the tool.
type AIProvider interface {
	Name() string
	CallTool(ctx context.Context, req ToolRequest) (*ToolCall, error)
}
