package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"deskagent/internal/chat"
	"deskagent/internal/security"
)

// WriteFileTool overwrites or appends to a workspace file. It does not
// create intermediate directories: the parent must already exist.
type WriteFileTool struct {
	ws *security.Workspace
}

func NewWriteFileTool(ws *security.Workspace) *WriteFileTool {
	return &WriteFileTool{ws: ws}
}

func (t *WriteFileTool) Name() string {
	return "WriteFile"
}

func (t *WriteFileTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Write content to a file (overwrite or append).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string", "description": "File path to write."},
					"content": map[string]any{"type": "string", "description": "Content to write."},
					"mode":    map[string]any{"type": "string", "enum": []string{"overwrite", "append"}, "description": "Write mode."},
				},
				"required": []string{"path", "content"},
			},
		},
	}
}

func (t *WriteFileTool) Execute(_ context.Context, args json.RawMessage) Output {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Mode    string `json:"mode"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid WriteFile arguments: %v", err))
	}
	return t.Write(in.Path, in.Content, in.Mode)
}

func (t *WriteFileTool) Write(path, content, mode string) Output {
	resolved, err := t.ws.ResolveForWrite(path)
	if err != nil {
		return fail(resolveFailure(err))
	}

	if mode == "append" {
		f, err := os.OpenFile(resolved, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fail(fmt.Sprintf("Failed to append to file: %v", err))
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return fail(fmt.Sprintf("Failed to append to file: %v", err))
		}
		return Output{OK: true, Summary: "File successfully appended to."}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fail(fmt.Sprintf("Failed to write file: %v", err))
	}
	return Output{OK: true, Summary: "File successfully overwritten."}
}
