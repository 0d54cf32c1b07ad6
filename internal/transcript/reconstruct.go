// Package transcript folds a sequence of wire events back into role-tagged
// conversation messages. The fold is read-only and idempotent: replaying the
// same event log always yields the same message sequence.
package transcript

import (
	"bufio"
	"io"
	"time"

	"deskagent/internal/chat"
	"deskagent/internal/wire"
)

// Fold walks events in order and reconstructs the conversation. A turn_begin
// flushes any accumulated assistant text, emits the user message immediately,
// and switches to accumulating assistant text; step_end/turn_end flush the
// buffer as one assistant message. Tool calls and results are observed but
// produce no messages yet.
func Fold(events []wire.Event) []chat.Message {
	f := folder{now: time.Now().Unix()}
	for _, ev := range events {
		f.feed(ev)
	}
	return f.finish()
}

// FoldReader decodes a newline-delimited event log and folds it. Undecodable
// lines degrade to plain text inside wire.Decode and are ignored by the fold,
// matching replay over an externally produced log.
func FoldReader(r io.Reader) ([]chat.Message, error) {
	f := folder{now: time.Now().Unix()}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ev, ok := wire.Decode(scanner.Text()); ok {
			f.feed(ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f.finish(), nil
}

type folder struct {
	messages     []chat.Message
	buffer       string
	accumulating bool
	now          int64
}

func (f *folder) feed(ev wire.Event) {
	switch ev.Kind {
	case wire.KindTurnBegin:
		f.flush()
		f.messages = append(f.messages, chat.Message{
			Role:      chat.RoleUser,
			Content:   ev.Text,
			Timestamp: f.now,
		})
		f.accumulating = true
	case wire.KindTextPart:
		if f.accumulating {
			f.buffer += ev.Text
		}
	case wire.KindStepEnd:
		f.flush()
	case wire.KindToolCall, wire.KindToolResult:
		// Observed but not surfaced as messages yet.
	}
}

func (f *folder) flush() {
	if f.accumulating && f.buffer != "" {
		f.messages = append(f.messages, chat.Message{
			Role:      chat.RoleAssistant,
			Content:   f.buffer,
			Timestamp: f.now,
		})
	}
	f.buffer = ""
}

func (f *folder) finish() []chat.Message {
	f.flush()
	return f.messages
}
