package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"deskagent/internal/chat"
	"deskagent/internal/security"
)

// ReadFileTool returns a numbered window of lines from a workspace file.
type ReadFileTool struct {
	ws *security.Workspace
}

func NewReadFileTool(ws *security.Workspace) *ReadFileTool {
	return &ReadFileTool{ws: ws}
}

func (t *ReadFileTool) Name() string {
	return "ReadFile"
}

func (t *ReadFileTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Read the contents of a text file from disk.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":        map[string]any{"type": "string", "description": "File path to read."},
					"line_offset": map[string]any{"type": "integer", "description": "Line number to start from.", "minimum": 1},
					"n_lines":     map[string]any{"type": "integer", "description": "Number of lines to read.", "minimum": 1},
				},
				"required": []string{"path"},
			},
		},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args json.RawMessage) Output {
	var in struct {
		Path       string `json:"path"`
		LineOffset int    `json:"line_offset"`
		NLines     int    `json:"n_lines"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid ReadFile arguments: %v", err))
	}
	return t.Read(in.Path, in.LineOffset, in.NLines)
}

// Read returns up to nLines numbered lines starting at the 1-based
// lineOffset. Files over maxFileBytes are refused outright; individual long
// lines are cut with an ellipsis.
func (t *ReadFileTool) Read(path string, lineOffset, nLines int) Output {
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return fail(resolveFailure(err))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fail(fmt.Sprintf("Failed to read file metadata: %v", err))
	}
	if info.IsDir() {
		return fail("Path is not a file")
	}
	if info.Size() > maxFileBytes {
		return fail("File too large (max 100KB)")
	}

	f, err := os.Open(resolved)
	if err != nil {
		return fail(fmt.Sprintf("Failed to read file: %v", err))
	}
	defer f.Close()

	start := max(lineOffset, 1)
	limit := min(max(nLines, 1), maxReadLines)

	type numbered struct {
		no   int
		text string
	}
	var lines []numbered
	var truncatedLines []int
	totalBytes := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFileBytes+1)
	for scanner.Scan() {
		lineNo++
		if lineNo < start {
			continue
		}
		text, cut := truncateLine(scanner.Text())
		if cut {
			truncatedLines = append(truncatedLines, lineNo)
		}
		totalBytes += len(text)
		lines = append(lines, numbered{no: lineNo, text: text})
		if len(lines) >= limit || totalBytes >= maxFileBytes {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(fmt.Sprintf("Failed to read file: %v", err))
	}

	var body []byte
	for _, line := range lines {
		body = append(body, fmt.Sprintf("%6d\t%s\n", line.no, line.text)...)
	}

	summary := "No lines read from file."
	if len(lines) > 0 {
		summary = fmt.Sprintf("%d lines read from file starting at line %d.", len(lines), start)
	}
	if len(lines) >= maxReadLines {
		summary += " Max lines reached."
	} else if totalBytes >= maxFileBytes {
		summary += " Max bytes reached."
	}
	if len(truncatedLines) > 0 {
		summary += fmt.Sprintf(" Lines %v were truncated.", truncatedLines)
	}

	return Output{OK: true, Summary: summary, Body: string(body)}
}

func resolveFailure(err error) string {
	if errors.Is(err, security.ErrPathOutsideWorkspace) {
		return "Path is outside working directory"
	}
	return fmt.Sprintf("Failed to resolve path: %v", err)
}
