package tools

import (
	"context"
	"encoding/json"
	"strings"
)

// Tool is a guard-wrapped entry point that turns a natural-language query
// into an Outcome. Answer never fails; failures are Invalid outcomes.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Answer(ctx context.Context, query string) Outcome
}

// queryParameters is the schema shared by every tool: a single query string.
func queryParameters(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"query"},
	}
}

// Registry manages the set of available tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds t, replacing any tool with the same name in place.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute decodes tool-call arguments ({"query": "..."}, or a bare string)
// and runs the named tool. Unknown tools and malformed arguments are
// Invalid.
func (r *Registry) Execute(ctx context.Context, name, arguments string) Outcome {
	t := r.Get(name)
	if t == nil {
		return Invalid()
	}
	query, ok := decodeQuery(arguments)
	if !ok {
		return Invalid()
	}
	return t.Answer(ctx, query)
}

func decodeQuery(arguments string) (string, bool) {
	trimmed := strings.TrimSpace(arguments)
	if !strings.HasPrefix(trimmed, "{") {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s, true
		}
		return "", false
	}
	var args struct {
		Query *string `json:"query"`
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil || args.Query == nil {
		return "", false
	}
	return *args.Query, true
}
