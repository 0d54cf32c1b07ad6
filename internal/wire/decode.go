package wire

import (
	"encoding/json"
	"strings"
)

// Decode parses one wire line into an Event. The second return value is
// false for blank lines, which produce no event at all. Decode never fails:
// malformed JSON and unknown discriminators fall back to a PlainText event
// carrying the original line verbatim.
func Decode(line string) (Event, bool) {
	if strings.TrimSpace(line) == "" {
		return Event{}, false
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return Event{Kind: KindPlainText, Text: line}, true
	}

	kind, known := kindOf(stringField(record, "type"))
	if !known {
		kind, known = kindOf(stringField(record, "msg_type"))
	}
	if !known {
		return Event{Kind: KindPlainText, Text: line}, true
	}

	ev := Event{Kind: kind}
	switch kind {
	case KindTextPart, KindThinkPart:
		ev.Text = stringField(record, "content")
	case KindTurnBegin:
		ev.Text = stringField(record, "user_input")
	case KindError:
		ev.Text = stringField(record, "message")
		if ev.Text == "" {
			ev.Text = "Unknown error"
		}
	case KindToolCall, KindToolResult:
		delete(record, "type")
		delete(record, "msg_type")
		ev.Extra = record
	}
	return ev, true
}

// kindOf accepts both CamelCase and snake_case spellings of the
// discriminator, as emitted by different agent versions.
func kindOf(name string) (Kind, bool) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "turnbegin":
		return KindTurnBegin, true
	case "textpart":
		return KindTextPart, true
	case "thinkpart":
		return KindThinkPart, true
	case "toolcall":
		return KindToolCall, true
	case "toolresult":
		return KindToolResult, true
	case "stepbegin":
		return KindStepBegin, true
	case "stepend", "turnend":
		return KindStepEnd, true
	case "error":
		return KindError, true
	default:
		return KindPlainText, false
	}
}

func stringField(record map[string]json.RawMessage, key string) string {
	raw, ok := record[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
