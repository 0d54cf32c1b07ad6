// Package provider runs a turn against an OpenAI-compatible HTTP API
// instead of a local agent process, emitting the same outward event stream
// so the front end cannot tell the two modes apart.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"deskagent/internal/chat"
	"deskagent/internal/config"
	"deskagent/internal/stream"

	openai "github.com/sashabaranov/go-openai"
)

// APIProvider streams chat completions over HTTP.
type APIProvider struct {
	client *openai.Client
	model  string
}

// NewAPIProvider builds a provider from the persisted auth config. The auth
// must be in API mode with a key present.
func NewAPIProvider(auth config.AuthConfig, model string) (*APIProvider, error) {
	if auth.Mode != config.AuthModeAPI {
		return nil, fmt.Errorf("auth mode %q is not api", auth.Mode)
	}
	if strings.TrimSpace(auth.APIKey) == "" {
		return nil, errors.New("api key is empty")
	}

	cfg := openai.DefaultConfig(auth.APIKey)
	if auth.APIBase != "" {
		cfg.BaseURL = strings.TrimRight(auth.APIBase, "/")
	}
	return &APIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (p *APIProvider) Name() string {
	return "openai"
}

// Stream runs one completion, forwarding content deltas as chunk events and
// assembled tool calls as tool_call events. A terminal done event follows
// on success; context cancellation yields a cancelled event instead.
func (p *APIProvider) Stream(ctx context.Context, sessionID string, history []chat.Message, tools []chat.ToolDef, emitter stream.Emitter) error {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: convertMessages(history),
		Stream:   true,
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
		req.ToolChoice = "auto"
	}

	s, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	defer s.Close()

	toolCallsByIdx := map[int]*toolCallAccumulator{}
	sawContent := false

	for {
		resp, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			emitter.Emit(stream.Event{Type: stream.EventCancelled, SessionID: sessionID})
			return nil
		}
		if err != nil {
			// Partial content already delivered reads as a finished turn
			// rather than a dead one.
			if sawContent || len(toolCallsByIdx) > 0 {
				break
			}
			emitter.Emit(stream.Event{Type: stream.EventError, SessionID: sessionID, Text: err.Error()})
			return fmt.Errorf("recv stream: %w", err)
		}

		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				sawContent = true
				emitter.Emit(stream.Event{Type: stream.EventChunk, SessionID: sessionID, Text: choice.Delta.Content})
			}
			if choice.Delta.ReasoningContent != "" {
				emitter.Emit(stream.Event{Type: stream.EventChunk, SessionID: sessionID, Text: choice.Delta.ReasoningContent})
			}
			for _, tc := range choice.Delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				acc, ok := toolCallsByIdx[idx]
				if !ok {
					acc = &toolCallAccumulator{}
					toolCallsByIdx[idx] = acc
				}
				if tc.ID != "" {
					acc.id = tc.ID
				}
				if tc.Function.Name != "" {
					acc.name += tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					acc.args.WriteString(tc.Function.Arguments)
				}
			}
		}
	}

	for _, call := range assembleToolCalls(toolCallsByIdx) {
		payload := map[string]json.RawMessage{
			"id":        rawJSONString(call.ID),
			"name":      rawJSONString(call.Name),
			"arguments": rawJSONString(call.Arguments),
		}
		emitter.Emit(stream.Event{Type: stream.EventToolCall, SessionID: sessionID, Payload: payload})
	}

	emitter.Emit(stream.Event{Type: stream.EventDone, SessionID: sessionID})
	return nil
}

type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// assembleToolCalls orders accumulated fragments by delta index and fills
// in ids the provider omitted.
func assembleToolCalls(byIdx map[int]*toolCallAccumulator) []chat.ToolCall {
	if len(byIdx) == 0 {
		return nil
	}
	maxIdx := 0
	for idx := range byIdx {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	calls := make([]chat.ToolCall, 0, len(byIdx))
	for i := 0; i <= maxIdx; i++ {
		acc, ok := byIdx[i]
		if !ok {
			continue
		}
		id := strings.TrimSpace(acc.id)
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, chat.ToolCall{
			ID:        id,
			Name:      strings.TrimSpace(acc.name),
			Arguments: acc.args.String(),
		})
	}
	return calls
}

func convertMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = make([]openai.ToolCall, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		}
		out = append(out, msg)
	}
	return out
}

func convertTools(tools []chat.ToolDef) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}

func rawJSONString(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return json.RawMessage(b)
}
