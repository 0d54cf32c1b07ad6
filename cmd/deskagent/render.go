package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"deskagent/internal/stream"

	"github.com/charmbracelet/lipgloss"
)

var eventStyles = map[string]lipgloss.Style{
	stream.EventToolCall:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true),
	stream.EventToolResult: lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
	stream.EventStepBegin:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	stream.EventStepEnd:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	stream.EventError:      lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	stream.EventDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
	stream.EventCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true),
}

// renderer writes events to stdout: JSON lines when piping (or forced),
// styled human output on a terminal. Chunks print raw in both modes of the
// terminal view so streamed text reads as the agent wrote it.
type renderer struct {
	out    io.Writer
	styled bool
}

func newRenderer(out *os.File, forceJSON bool) *renderer {
	styled := false
	if !forceJSON {
		if info, err := out.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			styled = true
		}
	}
	return &renderer{out: out, styled: styled}
}

func (r *renderer) render(e stream.Event) {
	if !r.styled {
		line, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintf(r.out, "%s\n", line)
		return
	}

	switch e.Type {
	case stream.EventChunk:
		fmt.Fprint(r.out, e.Text)
	case stream.EventError:
		fmt.Fprintf(r.out, "\n%s %s\n", eventStyles[e.Type].Render("error:"), e.Text)
	case stream.EventToolCall, stream.EventToolResult:
		payload, _ := json.Marshal(e.Payload)
		fmt.Fprintf(r.out, "\n%s %s\n", eventStyles[e.Type].Render(e.Type), payload)
	default:
		if style, ok := eventStyles[e.Type]; ok {
			fmt.Fprintf(r.out, "\n%s\n", style.Render(e.Type))
		}
	}
}
