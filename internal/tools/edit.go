package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"deskagent/internal/chat"
	"deskagent/internal/security"
)

// ReplaceEdit is one old/new substitution. ReplaceAll switches from
// first-occurrence to every occurrence.
type ReplaceEdit struct {
	Old        string `json:"old"`
	New        string `json:"new"`
	ReplaceAll bool   `json:"replace_all"`
}

// StrReplaceFileTool applies string replacements against an in-memory copy
// and rewrites the file once. If no edit changes anything, the file is left
// untouched and the operation fails.
type StrReplaceFileTool struct {
	ws *security.Workspace
}

func NewStrReplaceFileTool(ws *security.Workspace) *StrReplaceFileTool {
	return &StrReplaceFileTool{ws: ws}
}

func (t *StrReplaceFileTool) Name() string {
	return "StrReplaceFile"
}

func (t *StrReplaceFileTool) Definition() chat.ToolDef {
	editSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"old":         map[string]any{"type": "string"},
			"new":         map[string]any{"type": "string"},
			"replace_all": map[string]any{"type": "boolean"},
		},
		"required": []string{"old", "new"},
	}
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Replace specific strings in a file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string", "description": "File path to edit."},
					"edit": map[string]any{
						"oneOf": []any{
							editSchema,
							map[string]any{"type": "array", "items": editSchema},
						},
					},
				},
				"required": []string{"path", "edit"},
			},
		},
	}
}

func (t *StrReplaceFileTool) Execute(_ context.Context, args json.RawMessage) Output {
	var in struct {
		Path string          `json:"path"`
		Edit json.RawMessage `json:"edit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid StrReplaceFile arguments: %v", err))
	}
	edits, err := parseEdits(in.Edit)
	if err != nil {
		return fail(err.Error())
	}
	return t.Apply(in.Path, edits)
}

// parseEdits accepts either a single edit object or a list of them.
func parseEdits(raw json.RawMessage) ([]ReplaceEdit, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("edit is required")
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var edits []ReplaceEdit
		if err := json.Unmarshal(raw, &edits); err != nil {
			return nil, fmt.Errorf("invalid edit list: %w", err)
		}
		return edits, nil
	}
	var edit ReplaceEdit
	if err := json.Unmarshal(raw, &edit); err != nil {
		return nil, fmt.Errorf("invalid edit: %w", err)
	}
	return []ReplaceEdit{edit}, nil
}

func (t *StrReplaceFileTool) Apply(path string, edits []ReplaceEdit) Output {
	resolved, err := t.ws.Resolve(path)
	if err != nil {
		return fail(resolveFailure(err))
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fail(fmt.Sprintf("Failed to read file: %v", err))
	}
	original := string(data)

	updated := original
	replacements := 0
	for _, edit := range edits {
		if edit.Old == "" {
			continue
		}
		if edit.ReplaceAll {
			replacements += strings.Count(updated, edit.Old)
			updated = strings.ReplaceAll(updated, edit.Old, edit.New)
		} else if strings.Contains(updated, edit.Old) {
			updated = strings.Replace(updated, edit.Old, edit.New, 1)
			replacements++
		}
	}

	if updated == original {
		return fail("No replacements were made. The old string was not found.")
	}
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return fail(fmt.Sprintf("Failed to write file: %v", err))
	}
	return Output{
		OK:      true,
		Summary: fmt.Sprintf("File successfully edited. Applied %d edit(s) with %d replacement(s).", len(edits), replacements),
	}
}
