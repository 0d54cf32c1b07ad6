package tools

import (
	"context"
	"encoding/json"

	"deskagent/internal/chat"
)

// Tool is one sandboxed action. Execute never returns a Go error: all
// failures surface as Output with OK=false and a plain descriptive summary.
type Tool interface {
	Name() string
	Definition() chat.ToolDef
	Execute(ctx context.Context, args json.RawMessage) Output
}

// ApprovalRequest asks the UI boundary to confirm a risky invocation.
type ApprovalRequest struct {
	Tool    string
	Reason  string
	RawArgs string
}

// ApprovalAware tools can flag an invocation as needing user approval
// before Execute runs.
type ApprovalAware interface {
	ApprovalRequest(args json.RawMessage) (*ApprovalRequest, error)
}

// Registry holds the available tools by name.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		if _, dup := r.tools[t.Name()]; dup {
			continue
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions lists every tool definition in registration order.
func (r *Registry) Definitions() []chat.ToolDef {
	out := make([]chat.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition())
	}
	return out
}

// Execute runs the named tool. An unknown name is a failed Output, not a
// panic: the agent may request tools this build does not carry.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) Output {
	t, ok := r.tools[name]
	if !ok {
		return fail("Unknown tool: " + name)
	}
	return t.Execute(ctx, args)
}
