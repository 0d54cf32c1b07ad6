package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"deskagent/internal/chat"
)

var overwriteRedirectPattern = regexp.MustCompile(`(^|\s)(1>|2>|>)(\s*)([^\s>][^\s]*)`)

// ShellTool runs a command through the user's interactive shell in the
// workspace root. The login profile is loaded deliberately so the agent
// sees the user's full environment.
type ShellTool struct {
	workDir           string
	defaultTimeoutSec int
}

func NewShellTool(workDir string, defaultTimeoutSec int) *ShellTool {
	if defaultTimeoutSec <= 0 {
		defaultTimeoutSec = 60
	}
	return &ShellTool{workDir: workDir, defaultTimeoutSec: defaultTimeoutSec}
}

func (t *ShellTool) Name() string {
	return "Shell"
}

func (t *ShellTool) Definition() chat.ToolDef {
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.Name(),
			Description: "Run a shell command in the working directory.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{"type": "string", "description": "Shell command to execute."},
					"timeout": map[string]any{"type": "integer", "description": "Timeout in seconds.", "minimum": 1},
				},
				"required": []string{"command"},
			},
		},
	}
}

type shellArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

// ApprovalRequest flags commands that would overwrite an existing file via
// shell redirection.
func (t *ShellTool) ApprovalRequest(args json.RawMessage) (*ApprovalRequest, error) {
	var in shellArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("shell args: %w", err)
	}
	if target := t.existingRedirectTarget(in.Command); target != "" {
		return &ApprovalRequest{
			Tool:    t.Name(),
			Reason:  fmt.Sprintf("overwrite redirection target exists: %s", target),
			RawArgs: string(args),
		}, nil
	}
	return nil, nil
}

func (t *ShellTool) Execute(ctx context.Context, args json.RawMessage) Output {
	var in shellArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return fail(fmt.Sprintf("Invalid Shell arguments: %v", err))
	}
	return t.Run(ctx, in.Command, in.Timeout)
}

func (t *ShellTool) Run(ctx context.Context, command string, timeoutSec int) Output {
	if strings.TrimSpace(command) == "" {
		return fail("Command cannot be empty")
	}
	if timeoutSec <= 0 {
		timeoutSec = t.defaultTimeoutSec
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	shell, argv := shellCommand(command)
	cmd := exec.CommandContext(execCtx, shell, argv...)
	cmd.Dir = t.workDir

	combined, err := cmd.CombinedOutput()
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return fail(fmt.Sprintf("Command timed out after %d seconds.", timeoutSec))
	}

	body, truncated := truncateOutput(string(combined))
	if err == nil {
		return Output{
			OK:      true,
			Summary: appendTruncation("Command executed successfully.", truncated),
			Body:    body,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Output{
			OK:      false,
			Summary: appendTruncation(fmt.Sprintf("Command failed with exit code %d.", exitErr.ExitCode()), truncated),
			Body:    body,
		}
	}
	return fail(fmt.Sprintf("Failed to execute command: %v", err))
}

// shellCommand picks the platform's interactive shell.
func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	return shell, []string{"-lc", command}
}

func (t *ShellTool) existingRedirectTarget(command string) string {
	for _, m := range overwriteRedirectPattern.FindAllStringSubmatch(command, -1) {
		if len(m) < 5 {
			continue
		}
		target := strings.Trim(m[4], `"'`)
		if target == "" {
			continue
		}
		resolved := target
		if !filepath.IsAbs(target) {
			resolved = filepath.Join(t.workDir, target)
		}
		if info, err := os.Stat(resolved); err == nil && !info.IsDir() {
			return resolved
		}
	}
	return ""
}
