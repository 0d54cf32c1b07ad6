package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrNoAgentCommand means no agent executable could be located by any
// resolution step. Not retried: the caller surfaces it as a hard failure.
var ErrNoAgentCommand = errors.New("agent command not found")

// agentCommandEnv overrides executable resolution; it may hold a command
// plus leading arguments, split on whitespace.
const agentCommandEnv = "DESKAGENT_COMMAND"

var recognizedAgentNames = []string{"deskagent-agent", "coder"}

// pythonFallbackModule is invoked as `python -m <module>` when no native
// executable is installed.
const pythonFallbackModule = "deskagent_cli"

// ResolveAgentCommand locates the agent executable. Precedence: explicit
// path, then the environment override, then recognized names on PATH, then
// a Python interpreter running the CLI module. An explicit path that does
// not point at a file is a hard error rather than a fallthrough.
func ResolveAgentCommand(explicit string) ([]string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return nil, fmt.Errorf("agent command %q: %w", explicit, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("agent command %q is a directory", explicit)
		}
		return []string{explicit}, nil
	}

	if env := strings.TrimSpace(os.Getenv(agentCommandEnv)); env != "" {
		return strings.Fields(env), nil
	}

	for _, name := range recognizedAgentNames {
		if path, err := exec.LookPath(name); err == nil {
			return []string{path}, nil
		}
	}

	for _, python := range []string{"python3", "python"} {
		if path, err := exec.LookPath(python); err == nil {
			return []string{path, "-m", pythonFallbackModule}, nil
		}
	}

	return nil, ErrNoAgentCommand
}

// CheckAgentAvailable reports whether any agent executable resolves.
func CheckAgentAvailable(explicit string) bool {
	_, err := ResolveAgentCommand(explicit)
	return err == nil
}

// AgentVersion probes the resolved executable with --version.
func AgentVersion(ctx context.Context, explicit string) (string, error) {
	argv, err := ResolveAgentCommand(explicit)
	if err != nil {
		return "", err
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, argv[0], append(argv[1:], "--version")...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probe agent version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
