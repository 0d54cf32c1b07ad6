package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"

	"deskagent/internal/wire"
)

// lineQueueCap bounds the handoff between the blocking pipe reader and the
// consuming loop. A slow consumer backpressures the reader within this
// capacity instead of stalling the OS pipe.
const lineQueueCap = 100

// minResumeIDLen guards against forwarding placeholder session ids to the
// agent's resume flag.
const minResumeIDLen = 8

// Request describes one agent turn.
type Request struct {
	Prompt    string
	WorkDir   string
	Model     string
	Thinking  bool
	SessionID string

	// AgentPath is an explicit executable path; empty means resolve via
	// ResolveAgentCommand.
	AgentPath string

	// Command overrides resolution entirely when non-empty. Used by tests
	// and by callers that already resolved the executable.
	Command []string
}

// Controller runs agent turns and forwards their wire output as events.
type Controller struct {
	emitter Emitter
	log     *slog.Logger
}

func NewController(emitter Emitter, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{emitter: emitter, log: log}
}

// Run executes one turn to completion. It blocks until the stream finishes,
// fails, or cancel fires. Cancellation kills the child immediately, emits a
// terminal cancelled event, discards buffered lines, and returns nil; the
// child's exit status is never surfaced.
func (c *Controller) Run(cancel <-chan struct{}, req Request) error {
	argv := req.Command
	if len(argv) == 0 {
		resolved, err := ResolveAgentCommand(req.AgentPath)
		if err != nil {
			return fmt.Errorf("resolve agent command: %w", err)
		}
		argv = resolved
	}

	args := append(append([]string{}, argv[1:]...),
		"--wire",
		"--prompt", req.Prompt,
		"--work-dir", req.WorkDir,
	)
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.Thinking {
		args = append(args, "--thinking")
	}
	if len(req.SessionID) > minResumeIDLen {
		args = append(args, "--session", req.SessionID)
	}

	cmd := exec.Command(argv[0], args...)
	cmd.Dir = req.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start agent process: %w", err)
	}

	lines := make(chan string, lineQueueCap)
	readerStop := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readerStop:
				return
			}
		}
	}()

	for {
		select {
		case <-cancel:
			close(readerStop)
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			go func() { _ = cmd.Wait() }()
			c.emitter.Emit(Event{Type: EventCancelled, SessionID: req.SessionID})
			return nil

		case line, ok := <-lines:
			if !ok {
				c.emitter.Emit(Event{Type: EventDone, SessionID: req.SessionID})
				if err := cmd.Wait(); err != nil {
					c.log.Warn("agent process exited with error",
						"err", err,
						"stderr", tail(stderr.String(), 2000))
				}
				return nil
			}
			ev, ok := wire.Decode(line)
			if !ok {
				continue
			}
			c.emitWire(req.SessionID, ev)
		}
	}
}

// emitWire translates one decoded wire event into its outward form. Turn
// boundaries and step begins from the wire are forwarded as-is; plain text
// and think parts both surface as chunks so nothing the agent prints is
// lost.
func (c *Controller) emitWire(sessionID string, ev wire.Event) {
	switch ev.Kind {
	case wire.KindTextPart, wire.KindThinkPart, wire.KindPlainText:
		c.emitter.Emit(Event{Type: EventChunk, SessionID: sessionID, Text: ev.Text})
	case wire.KindToolCall:
		c.emitter.Emit(Event{Type: EventToolCall, SessionID: sessionID, Payload: ev.Extra})
	case wire.KindToolResult:
		c.emitter.Emit(Event{Type: EventToolResult, SessionID: sessionID, Payload: ev.Extra})
	case wire.KindStepBegin:
		c.emitter.Emit(Event{Type: EventStepBegin, SessionID: sessionID})
	case wire.KindStepEnd:
		c.emitter.Emit(Event{Type: EventStepEnd, SessionID: sessionID})
	case wire.KindError:
		c.emitter.Emit(Event{Type: EventError, SessionID: sessionID, Text: ev.Text})
	case wire.KindTurnBegin:
		// The front end already knows its own prompt.
	}
}

func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
