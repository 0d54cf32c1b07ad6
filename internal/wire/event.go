// Package wire decodes the line-delimited JSON protocol spoken by the agent
// process. Decoding is total: a line that is not a recognized wire record
// degrades to a PlainText event so legacy or non-conforming output still
// reaches the user.
package wire

import "encoding/json"

// Kind discriminates wire events. The set is closed; anything else maps to
// KindPlainText.
type Kind int

const (
	KindPlainText Kind = iota
	KindTurnBegin
	KindTextPart
	KindThinkPart
	KindToolCall
	KindToolResult
	KindStepBegin
	KindStepEnd
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindTurnBegin:
		return "turn_begin"
	case KindTextPart:
		return "text_part"
	case KindThinkPart:
		return "think_part"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	case KindStepBegin:
		return "step_begin"
	case KindStepEnd:
		return "step_end"
	case KindError:
		return "error"
	default:
		return "plain_text"
	}
}

// Event is one decoded wire record.
type Event struct {
	Kind Kind
	// Text carries the extracted payload string: `content` for text and
	// think parts, `user_input` for turn begin, `message` for errors, and
	// the raw line for plain text.
	Text string
	// Extra holds the remaining fields of the record for kinds that forward
	// an opaque payload (tool calls and results).
	Extra map[string]json.RawMessage
}
