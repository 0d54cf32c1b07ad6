package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"deskagent/internal/approval"
	"deskagent/internal/chat"
	"deskagent/internal/config"
	"deskagent/internal/provider"
	"deskagent/internal/security"
	"deskagent/internal/session"
	"deskagent/internal/storage"
	"deskagent/internal/stream"
	"deskagent/internal/tools"

	"github.com/spf13/pflag"
)

func cmdRun(args []string) error {
	fs := newRunFlags()
	if err := fs.flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*fs.prompt) == "" {
		return fmt.Errorf("--prompt is required")
	}

	cfg, err := config.Load(*fs.configPath)
	if err != nil {
		return err
	}
	wd, err := resolveWorkDir(*fs.workDir)
	if err != nil {
		return err
	}

	log := newLogger()
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	sessionID := *fs.sessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	store.GetOrCreate(sessionID, session.DeriveTitle(*fs.prompt), wd)

	now := time.Now().Unix()
	store.AddMessage(sessionID, chat.Message{Role: chat.RoleUser, Content: *fs.prompt, Timestamp: now})

	renderer := newRenderer(os.Stdout, *fs.jsonOut)
	recorder := &assistantRecorder{store: store, sessionID: sessionID}
	sink := stream.EmitterFunc(func(e stream.Event) {
		recorder.observe(e)
		renderer.render(e)
	})

	auth := config.LoadAuth()
	if auth.Mode == config.AuthModeAPI {
		err = runAPITurn(cfg, auth, wd, sessionID, *fs.prompt, fs, store, log, sink)
	} else {
		err = runCLITurn(cfg, auth, wd, sessionID, fs, sink)
	}
	recorder.flush()
	return err
}

type runFlags struct {
	flags      *pflag.FlagSet
	configPath *string
	workDir    *string
	prompt     *string
	sessionID  *string
	model      *string
	thinking   *bool
	agentPath  *string
	jsonOut    *bool
}

func newRunFlags() *runFlags {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	return &runFlags{
		flags:      fs,
		configPath: fs.String("config", "", "config file path"),
		workDir:    fs.String("work-dir", "", "working directory (default: cwd)"),
		prompt:     fs.String("prompt", "", "user prompt for this turn"),
		sessionID:  fs.String("session", "", "session id to resume"),
		model:      fs.String("model", "", "model override"),
		thinking:   fs.Bool("thinking", false, "enable extended reasoning"),
		agentPath:  fs.String("agent", "", "explicit agent executable"),
		jsonOut:    fs.Bool("json", false, "force JSON event output"),
	}
}

func runCLITurn(cfg config.Config, auth config.AuthConfig, wd, sessionID string, fs *runFlags, sink stream.Emitter) error {
	agentPath := *fs.agentPath
	if agentPath == "" {
		agentPath = auth.CLIPath
	}
	if agentPath == "" {
		agentPath = cfg.Agent.Command
	}
	model := *fs.model
	if model == "" {
		model = cfg.Agent.Model
	}

	registry := stream.NewRegistry()
	id, cancel := registry.Add()
	defer registry.Remove(id)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		registry.Cancel(id)
	}()

	controller := stream.NewController(sink, newLogger())
	return controller.Run(cancel, stream.Request{
		Prompt:    *fs.prompt,
		WorkDir:   wd,
		Model:     model,
		Thinking:  *fs.thinking || cfg.Agent.Thinking,
		SessionID: sessionID,
		AgentPath: agentPath,
	})
}

// runAPITurn streams one completion from the HTTP provider and executes any
// tool calls it produced, gated by terminal approval and recorded in the
// audit log.
func runAPITurn(cfg config.Config, auth config.AuthConfig, wd, sessionID, prompt string, fs *runFlags, store *session.Store, log *slog.Logger, sink stream.Emitter) error {
	model := *fs.model
	if model == "" {
		model = cfg.Agent.Model
	}
	p, err := provider.NewAPIProvider(auth, model)
	if err != nil {
		return err
	}

	ws, err := security.NewWorkspace(wd)
	if err != nil {
		return err
	}
	registry := tools.NewRegistry(
		tools.NewReadFileTool(ws),
		tools.NewWriteFileTool(ws),
		tools.NewStrReplaceFileTool(ws),
		tools.NewShellTool(wd, cfg.Safety.ShellTimeoutSec),
		tools.NewSearchWebTool(cfg.Services.Search),
		tools.NewFetchURLTool(cfg.Services.Fetch),
	)

	audit, err := storage.OpenAuditLog(cfg.Storage.AuditDB)
	if err != nil {
		return err
	}
	defer audit.Close()

	history, err := store.Messages(wd, sessionID)
	if err != nil {
		log.Warn("load session history", "err", err)
	}
	if len(history) == 0 {
		history = []chat.Message{{Role: chat.RoleUser, Content: prompt, Timestamp: time.Now().Unix()}}
	}

	executor := &toolExecutor{
		registry:  registry,
		gate:      approval.NewGate(),
		audit:     audit,
		sessionID: sessionID,
		log:       log,
		sink:      sink,
	}
	wrapped := stream.EmitterFunc(func(e stream.Event) {
		sink.Emit(e)
		if e.Type == stream.EventToolCall {
			executor.handle(e)
		}
	})

	return p.Stream(context.Background(), sessionID, history, registry.Definitions(), wrapped)
}

// toolExecutor runs API-mode tool calls. Approval-aware tools prompt on
// the terminal; every decision and execution lands in the audit log.
type toolExecutor struct {
	registry  *tools.Registry
	gate      *approval.Gate
	audit     *storage.AuditLog
	sessionID string
	log       *slog.Logger
	sink      stream.Emitter
}

func (x *toolExecutor) handle(e stream.Event) {
	var callID, name, arguments string
	if raw, ok := e.Payload["id"]; ok {
		_ = json.Unmarshal(raw, &callID)
	}
	if raw, ok := e.Payload["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	if raw, ok := e.Payload["arguments"]; ok {
		_ = json.Unmarshal(raw, &arguments)
	}

	tool, ok := x.registry.Lookup(name)
	if !ok {
		x.emitResult(callID, tools.Output{OK: false, Summary: "Unknown tool: " + name})
		return
	}

	rawArgs := json.RawMessage(arguments)
	if aware, ok := tool.(tools.ApprovalAware); ok {
		req, err := aware.ApprovalRequest(rawArgs)
		if err != nil {
			x.emitResult(callID, tools.Output{OK: false, Summary: fmt.Sprintf("Invalid %s arguments: %v", name, err)})
			return
		}
		if req != nil && !x.askApproval(callID, req) {
			x.emitResult(callID, tools.Output{OK: false, Summary: "Tool call was denied by the user."})
			return
		}
	}

	out := x.registry.Execute(context.Background(), name, rawArgs)
	if err := x.audit.RecordExecution(storage.ExecutionEntry{
		SessionID: x.sessionID,
		CallID:    callID,
		Tool:      name,
		OK:        out.OK,
		Summary:   out.Summary,
	}); err != nil {
		x.log.Warn("record tool execution", "err", err)
	}
	x.emitResult(callID, out)
}

func (x *toolExecutor) askApproval(callID string, req *tools.ApprovalRequest) bool {
	verdict := x.gate.Register(callID)

	fmt.Fprintf(os.Stderr, "approval needed for %s: %s\nallow? [y/N] ", req.Tool, req.Reason)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		approved := err == nil && strings.HasPrefix(strings.TrimSpace(strings.ToLower(answer)), "y")
		if err := x.gate.Respond(callID, approved); err != nil {
			x.log.Warn("approval response dropped", "call_id", callID, "err", err)
		}
	}()

	approved, err := x.gate.Wait(context.Background(), callID, verdict)
	if err != nil {
		x.log.Warn("approval wait failed", "call_id", callID, "err", err)
		approved = false
	}
	if err := x.audit.RecordApproval(storage.ApprovalEntry{
		SessionID: x.sessionID,
		CallID:    callID,
		Tool:      req.Tool,
		Approved:  approved,
		Reason:    req.Reason,
	}); err != nil {
		x.log.Warn("record approval", "err", err)
	}
	return approved
}

func (x *toolExecutor) emitResult(callID string, out tools.Output) {
	encoded, err := json.Marshal(out)
	if err != nil {
		encoded = []byte(`{}`)
	}
	id, _ := json.Marshal(callID)
	x.sink.Emit(stream.Event{
		Type:      stream.EventToolResult,
		SessionID: x.sessionID,
		Payload: map[string]json.RawMessage{
			"id":     id,
			"result": encoded,
		},
	})
}

// assistantRecorder folds chunk events back into one assistant message per
// turn so the GUI session log matches what was streamed.
type assistantRecorder struct {
	store     *session.Store
	sessionID string
	buffer    strings.Builder
}

func (r *assistantRecorder) observe(e stream.Event) {
	switch e.Type {
	case stream.EventChunk:
		r.buffer.WriteString(e.Text)
	case stream.EventStepEnd, stream.EventDone:
		r.flush()
	}
}

func (r *assistantRecorder) flush() {
	if r.buffer.Len() == 0 {
		return
	}
	r.store.AddMessage(r.sessionID, chat.Message{
		Role:      chat.RoleAssistant,
		Content:   r.buffer.String(),
		Timestamp: time.Now().Unix(),
	})
	r.buffer.Reset()
}
