package stream

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *collector) types() []string {
	out := []string{}
	for _, e := range c.all() {
		out = append(out, e.Type)
	}
	return out
}

func writeFakeAgent(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix fake agent")
	}
	path := filepath.Join(t.TempDir(), "fake-agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestController(sink Emitter) *Controller {
	return NewController(sink, slog.New(slog.DiscardHandler))
}

func TestRunStreamsWireEvents(t *testing.T) {
	agent := writeFakeAgent(t, `
echo '{"type":"step_begin"}'
echo '{"type":"text_part","content":"hello "}'
echo '{"type":"text_part","content":"world"}'
echo '{"type":"step_end"}'
`)
	sink := &collector{}
	c := newTestController(sink)

	err := c.Run(nil, Request{
		Prompt:    "hi",
		WorkDir:   t.TempDir(),
		SessionID: "session-abc",
		Command:   []string{agent},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{EventStepBegin, EventChunk, EventChunk, EventStepEnd, EventDone}
	got := sink.types()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for _, e := range sink.all() {
		if e.SessionID != "session-abc" {
			t.Fatalf("event %q missing session id: %+v", e.Type, e)
		}
	}
	if sink.all()[1].Text != "hello " {
		t.Fatalf("chunk text = %q", sink.all()[1].Text)
	}
}

func TestRunPlainTextFallbackBecomesChunk(t *testing.T) {
	agent := writeFakeAgent(t, `
echo 'not json at all'
echo '{"type":"unknown_kind"}'
`)
	sink := &collector{}
	c := newTestController(sink)

	if err := c.Run(nil, Request{Prompt: "p", WorkDir: t.TempDir(), Command: []string{agent}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := sink.all()
	if len(events) != 3 {
		t.Fatalf("got %d events: %v", len(events), sink.types())
	}
	if events[0].Type != EventChunk || events[0].Text != "not json at all" {
		t.Fatalf("fallback chunk = %+v", events[0])
	}
	if events[1].Type != EventChunk || events[1].Text != `{"type":"unknown_kind"}` {
		t.Fatalf("unrecognized-type chunk = %+v", events[1])
	}
}

func TestRunToolEventsCarryPayload(t *testing.T) {
	agent := writeFakeAgent(t, `
echo '{"type":"tool_call","id":"c1","name":"ReadFile"}'
echo '{"type":"tool_result","id":"c1","ok":true}'
`)
	sink := &collector{}
	c := newTestController(sink)

	if err := c.Run(nil, Request{Prompt: "p", WorkDir: t.TempDir(), Command: []string{agent}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := sink.all()
	if events[0].Type != EventToolCall {
		t.Fatalf("first event = %q", events[0].Type)
	}
	if string(events[0].Payload["name"]) != `"ReadFile"` {
		t.Fatalf("payload name = %s", events[0].Payload["name"])
	}
	if events[1].Type != EventToolResult {
		t.Fatalf("second event = %q", events[1].Type)
	}
}

func TestRunCancelKillsChild(t *testing.T) {
	agent := writeFakeAgent(t, `
echo '{"type":"text_part","content":"started"}'
sleep 30
echo '{"type":"text_part","content":"never"}'
`)
	sink := &collector{}
	c := newTestController(sink)

	cancel := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Run(cancel, Request{Prompt: "p", WorkDir: t.TempDir(), SessionID: "session-xyz", Command: []string{agent}})
	}()

	// Let the first chunk through, then cancel.
	deadline := time.After(5 * time.Second)
	for len(sink.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("never saw the first chunk")
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(cancel)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	events := sink.all()
	last := events[len(events)-1]
	if last.Type != EventCancelled {
		t.Fatalf("terminal event = %q, want cancelled", last.Type)
	}
	if last.SessionID != "session-xyz" {
		t.Fatalf("cancelled event session id = %q", last.SessionID)
	}
	for _, e := range events {
		if e.Type == EventDone {
			t.Fatal("done emitted on a cancelled stream")
		}
	}
}

func TestRunForwardsSessionFlagOnlyForRealIDs(t *testing.T) {
	// The fake agent echoes its arguments back as one plain line.
	agent := writeFakeAgent(t, `echo "$@"`)

	for _, tc := range []struct {
		id   string
		want bool
	}{
		{"", false},
		{"short", false},
		{"session-12345678", true},
	} {
		sink := &collector{}
		c := newTestController(sink)
		if err := c.Run(nil, Request{Prompt: "p", WorkDir: t.TempDir(), SessionID: tc.id, Command: []string{agent}}); err != nil {
			t.Fatalf("Run(%q): %v", tc.id, err)
		}

		var argLine string
		for _, e := range sink.all() {
			if e.Type == EventChunk {
				argLine = e.Text
			}
		}
		if got := strings.Contains(argLine, "--session"); got != tc.want {
			t.Fatalf("id %q: args %q, --session forwarded = %v, want %v", tc.id, argLine, got, tc.want)
		}
	}
}

func TestRunForwardsModelAndThinkingFlags(t *testing.T) {
	agent := writeFakeAgent(t, `echo "$@"`)
	sink := &collector{}
	c := newTestController(sink)

	err := c.Run(nil, Request{
		Prompt:   "p",
		WorkDir:  t.TempDir(),
		Model:    "k2",
		Thinking: true,
		Command:  []string{agent},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var argLine string
	for _, e := range sink.all() {
		if e.Type == EventChunk {
			argLine = e.Text
		}
	}
	for _, want := range []string{"--wire", "--prompt p", "--model k2", "--thinking"} {
		if !strings.Contains(argLine, want) {
			t.Fatalf("args %q missing %q", argLine, want)
		}
	}
}
