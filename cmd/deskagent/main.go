// deskagent is the desktop agent backend: it runs turns against a local
// agent CLI or an OpenAI-compatible API, manages the dual session store,
// and executes sandboxed tools behind an approval gate.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"deskagent/internal/config"
	"deskagent/internal/session"
	"deskagent/internal/stream"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "deskagent: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return cmdRun(rest)
	case "sessions":
		return cmdSessions(rest)
	case "messages":
		return cmdMessages(rest)
	case "delete":
		return cmdDelete(rest)
	case "auth":
		return cmdAuth(rest)
	case "agent-version":
		return cmdAgentVersion(rest)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: deskagent <command> [flags]

commands:
  run            run one agent turn, streaming events to stdout
  sessions       list sessions for a working directory
  messages       print a session's messages
  delete         delete a session
  auth           show or update auth configuration
  agent-version  probe the agent executable
`)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func openStore(cfg config.Config, log *slog.Logger) (*session.Store, error) {
	return session.NewStore(cfg.Sessions.GUIRoot, cfg.Sessions.CLIRoot, cfg.Sessions.EnvTag, log)
}

func cmdSessions(args []string) error {
	fs := pflag.NewFlagSet("sessions", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	workDir := fs.String("work-dir", "", "working directory (default: cwd)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	wd, err := resolveWorkDir(*workDir)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, newLogger())
	if err != nil {
		return err
	}
	infos, err := store.List(wd)
	if err != nil {
		return err
	}
	for _, info := range infos {
		updated := time.Unix(info.UpdatedAt, 0).Format("2006-01-02 15:04")
		fmt.Printf("%s\t%s\t%s\n", info.ID, updated, info.Title)
	}
	return nil
}

func cmdMessages(args []string) error {
	fs := pflag.NewFlagSet("messages", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	workDir := fs.String("work-dir", "", "working directory (default: cwd)")
	sessionID := fs.String("session", "", "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return fmt.Errorf("--session is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	wd, err := resolveWorkDir(*workDir)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, newLogger())
	if err != nil {
		return err
	}
	messages, err := store.Messages(wd, *sessionID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
	return nil
}

func cmdDelete(args []string) error {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	workDir := fs.String("work-dir", "", "working directory (default: cwd)")
	sessionID := fs.String("session", "", "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return fmt.Errorf("--session is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	wd, err := resolveWorkDir(*workDir)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, newLogger())
	if err != nil {
		return err
	}
	return store.Delete(wd, *sessionID)
}

func cmdAuth(args []string) error {
	fs := pflag.NewFlagSet("auth", pflag.ContinueOnError)
	mode := fs.String("mode", "", "auth mode: cli or api")
	apiKey := fs.String("api-key", "", "API key for api mode")
	apiBase := fs.String("api-base", "", "API base URL for api mode")
	cliPath := fs.String("cli-path", "", "explicit agent executable for cli mode")
	if err := fs.Parse(args); err != nil {
		return err
	}

	auth := config.LoadAuth()

	if *mode == "" && *apiKey == "" && *apiBase == "" && *cliPath == "" {
		fmt.Printf("mode: %s\n", auth.Mode)
		if auth.APIBase != "" {
			fmt.Printf("api_base: %s\n", auth.APIBase)
		}
		if auth.CLIPath != "" {
			fmt.Printf("cli_path: %s\n", auth.CLIPath)
		}
		fmt.Printf("configured: %v\n", auth.IsConfigured())
		return nil
	}

	if *mode != "" {
		switch *mode {
		case config.AuthModeCLI, config.AuthModeAPI:
			auth.Mode = *mode
		default:
			return fmt.Errorf("unknown auth mode %q", *mode)
		}
	}
	if *apiKey != "" {
		auth.APIKey = *apiKey
	}
	if *apiBase != "" {
		auth.APIBase = *apiBase
	}
	if *cliPath != "" {
		auth.CLIPath = *cliPath
	}
	return config.SaveAuth(auth)
}

func cmdAgentVersion(args []string) error {
	fs := pflag.NewFlagSet("agent-version", pflag.ContinueOnError)
	agentPath := fs.String("agent", "", "explicit agent executable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !stream.CheckAgentAvailable(*agentPath) {
		return fmt.Errorf("no agent executable found")
	}
	version, err := stream.AgentVersion(context.Background(), *agentPath)
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func resolveWorkDir(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}
