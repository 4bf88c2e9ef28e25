package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/internal/util"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/model"
	"github.com/switchboard-dev/switchboard/tool"
)

// PromptDebugOptions configure the PromptDebug middleware.
type PromptDebugOptions struct {
	// MaxLength truncates every logged field.
	MaxLength int
	// ShowResponse also logs the model response after the call.
	ShowResponse bool
}

// PromptDebug writes the final request and the raw response to the
// application log, never to the user channel. Development only: tool call
// arguments are logged verbatim and may contain credentials.
type PromptDebug struct {
	maxLength    int
	showResponse bool
	logger       *logging.Scoped
}

// NewPromptDebug creates the middleware. It belongs innermost in the chain
// so it records the request exactly as the model receives it.
func NewPromptDebug(logger logging.Logger, optFns ...func(o *PromptDebugOptions)) *PromptDebug {
	opts := PromptDebugOptions{
		MaxLength:    2000,
		ShowResponse: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PromptDebug{
		maxLength:    opts.MaxLength,
		showResponse: opts.ShowResponse,
		logger:       logging.NewScoped(logger).WithComponent("prompt_debug"),
	}
}

// Name identifies the middleware in chain diagnostics.
func (m *PromptDebug) Name() string { return "prompt_debug" }

// WrapModelCall logs the outgoing request, runs the call, and logs the
// outcome.
func (m *PromptDebug) WrapModelCall(ctx context.Context, req *model.Request, next Handler) (*model.Result, error) {
	log := m.logger.WithContext("model", req.Model)
	log.Info("model request",
		"system", util.Truncate(req.System, m.maxLength),
		"messages", util.Truncate(renderMessages(req.Messages), m.maxLength),
		"tools", strings.Join(toolNames(req.Tools), ","),
	)

	res, err := next(ctx, req)
	if err != nil {
		log.Info("model call errored", "error", util.Truncate(err.Error(), m.maxLength))
		return res, err
	}
	if m.showResponse {
		log.Info("model response",
			"finish_reason", res.FinishReason,
			"message", util.Truncate(renderMessage(res.Message), m.maxLength),
		)
	}
	return res, nil
}

func renderMessages(messages []core.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderMessage(msg))
	}
	return b.String()
}

func renderMessage(msg core.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", msg.Role)
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case core.TextPart:
			b.WriteString(" " + p.Text)
		case core.ToolCallPart:
			fmt.Fprintf(&b, " %s(%s)", p.ToolCall.Name, p.ToolCall.Arguments)
		case core.ToolResultPart:
			fmt.Fprintf(&b, " %s => %s", p.ToolResult.Name, p.ToolResult.Content)
		}
	}
	return b.String()
}

func toolNames(tools []*tool.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		if t != nil {
			names = append(names, t.Name)
		}
	}
	return names
}
