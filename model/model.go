package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/tool"
)

// Request captures the normalized model input produced by the agent runtime.
// It is mutable on purpose: middleware may rewrite any field before the
// request reaches the provider.
type Request struct {
	System          string         `json:"system,omitempty"`           // System prompt
	Messages        []core.Message `json:"messages"`                   // Conversation history
	Tools           []*tool.Tool   `json:"tools,omitempty"`            // Tools exposed for this call
	Model           string         `json:"model,omitempty"`            // Model id, adapter default when empty
	Temperature     float64        `json:"temperature"`                // Sampling temperature
	ReasoningEffort string         `json:"reasoning_effort,omitempty"` // "", "low", "medium", "high"
	Timeout         time.Duration  `json:"timeout,omitempty"`          // Per-request bound, client default when zero
	Stream          bool           `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a generating model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface a provider adapter must implement.
// Generate returns a response channel and an error channel; both are closed
// when generation ends. Partial responses precede exactly one final response
// on success.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// scriptStep is one queued MockModel turn: either a message or an error.
type scriptStep struct {
	msg core.Message
	err error
}

// MockModel is a lightweight in-memory Model for tests and examples. Turns
// can be scripted in order with Enqueue/EnqueueError, which makes tool-call
// loops reproducible; unscripted calls fall back to prompt-keyed responses
// and finally to an echo.
type MockModel struct {
	info Info

	mu        sync.Mutex
	script    []scriptStep
	responses map[string]string
	requests  []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue scripts the assistant message for the next unscripted Generate call.
func (m *MockModel) Enqueue(msg core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{msg: msg})
}

// EnqueueError scripts a failure for the next unscripted Generate call.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{err: err})
}

// Requests returns a copy of every request seen, in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// next records the request and pops the next scripted step, if any.
func (m *MockModel) next(req Request) (scriptStep, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return scriptStep{}, false
	}
	step := m.script[0]
	m.script = m.script[1:]
	return step, true
}

// Generate implements Model; emits optional streaming char chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		step, scripted := m.next(req)
		if scripted {
			if step.err != nil {
				errCh <- step.err
				return
			}
			m.emit(ctx, req, step.msg, respCh, errCh)
			return
		}

		var inputText string
		if len(req.Messages) > 0 {
			inputText = req.Messages[len(req.Messages)-1].Text()
		}
		m.mu.Lock()
		full := m.responses[inputText]
		m.mu.Unlock()
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		m.emit(ctx, req, core.NewAssistantTextMessage(full), respCh, errCh)
	}()
	return respCh, errCh
}

func (m *MockModel) emit(ctx context.Context, req Request, msg core.Message, respCh chan<- Response, errCh chan<- error) {
	if req.Stream {
		for _, r := range msg.Text() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- Response{
				Partial: true,
				Message: core.NewAssistantTextMessage(string(r)),
			}:
			}
		}
	}
	finish := "stop"
	if msg.HasToolCalls() {
		finish = "tool_calls"
	}
	select {
	case <-ctx.Done():
		errCh <- ctx.Err()
	case respCh <- Response{
		Partial:      false,
		Message:      msg,
		FinishReason: finish,
	}:
	}
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
