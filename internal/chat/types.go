package chat

// ToolCall records one tool invocation requested by the agent within a
// message.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is the unit of persisted conversation. Append-only within a
// session once written.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp int64      `json:"timestamp"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
