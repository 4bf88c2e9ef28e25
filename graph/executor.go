package graph

import (
	"context"
	"errors"

	"github.com/switchboard-dev/switchboard/agent"
	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/middleware"
	"github.com/switchboard-dev/switchboard/model"
)

// Executor drives the fixed two-node graph for one conversation turn:
//
//	START -> supervisor -> formatter -> END
//
// The supervisor node routes the query across specialist wrapper tools
// under the supervisor timeout; the formatter node polishes the raw
// specialist output under its own timeout. Turns for one session run
// strictly sequentially; the executor itself is stateless across turns
// and safe for concurrent use by independent sessions.
type Executor struct {
	settings   *config.Settings
	registry   *agent.Registry
	runtime    *agent.Runtime
	supervisor *SupervisorBuilder
	formatter  *Formatter
	logger     *logging.Scoped
}

// Options configure New.
type Options struct {
	// Logger receives engine logs. Defaults to a no-op logger.
	Logger logging.Logger
	// Formatter overrides the default formatter prompt sections.
	Formatter *FormatterBuilder
	// SupervisorMiddleware is attached to the supervisor agent after the
	// engine's fixed pipeline.
	SupervisorMiddleware []middleware.Middleware
}

// New wires an executor over the shared settings, registry and model
// client.
func New(settings *config.Settings, registry *agent.Registry, client *model.Client, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		Formatter: NewFormatterBuilder(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	runtime := agent.NewRuntime(client, settings, func(o *agent.RuntimeOptions) {
		o.Logger = opts.Logger
	})

	return &Executor{
		settings: settings,
		registry: registry,
		runtime:  runtime,
		supervisor: NewSupervisorBuilder(registry, runtime, func(o *SupervisorBuilderOptions) {
			o.Middleware = opts.SupervisorMiddleware
		}),
		formatter: NewFormatter(client, settings, func(o *FormatterOptions) {
			o.Builder = opts.Formatter
			o.Logger = opts.Logger
		}),
		logger: logging.NewScoped(opts.Logger).WithComponent("graph"),
	}
}

// Runtime exposes the runtime the executor built, for callers that invoke
// specialists directly outside a turn.
func (e *Executor) Runtime() *agent.Runtime {
	return e.runtime
}

// RunTurn executes one turn over state and returns the same state with
// exactly one Assistant message appended: the formatted reply on success,
// the translated error message on failure. The sink is turn-scoped and
// closed before RunTurn returns, success or failure.
func (e *Executor) RunTurn(ctx context.Context, state *core.ChatbotState, sink *core.Sink) *core.ChatbotState {
	defer sink.Close()

	state.WorkflowStep = core.StepSupervisor

	supervisor, err := e.supervisor.Build(sink)
	if err != nil {
		return e.failTurn(ctx, state, sink, err)
	}

	result, err := e.runtime.Run(ctx, supervisor, state.UserQuery,
		agent.AsSupervisor(),
		agent.WithSink(sink),
		agent.WithHistory(conversationContext(state.Messages)),
		agent.WithCompressionObserver(e.mirrorCompression(state)),
	)
	if err != nil {
		return e.failTurn(ctx, state, sink, err)
	}
	state.AgentResults = result.Response

	state.WorkflowStep = core.StepFormatter
	reply := e.formatter.Format(ctx, state, sink)

	state.ChatbotResponse = reply
	state.AppendMessage(core.NewAssistantTextMessage(reply))
	state.WorkflowStep = core.StepComplete
	_ = sink.Send(ctx, core.Final{Text: reply})

	e.logger.Info("turn completed",
		"steps", result.Metadata.Steps,
		"tools_used", len(result.ToolsUsed),
		"duration", result.Metadata.Duration.String())
	return state
}

// failTurn translates err into a user-visible reply, records it as the
// turn's single Assistant message and emits an Error event. The raw error
// goes to the log only.
func (e *Executor) failTurn(ctx context.Context, state *core.ChatbotState, sink *core.Sink, err error) *core.ChatbotState {
	reply := translateError(err)
	e.logger.Error("turn failed", "error", err, "step", string(state.WorkflowStep))

	state.WorkflowStep = core.StepError
	state.ChatbotResponse = reply
	state.AppendMessage(core.NewAssistantTextMessage(reply))
	_ = sink.Send(ctx, core.Error{Message: reply})
	return state
}

// mirrorCompression reflects a summarization prefix replacement done
// inside the model request back into the persistent turn state, keeping
// session history and model context aligned.
func (e *Executor) mirrorCompression(state *core.ChatbotState) func(removed int, summary core.Message) {
	return func(removed int, summary core.Message) {
		if err := state.ReplacePrefixWithSummary(removed, summary); err != nil {
			e.logger.Warn("summarization not mirrored into history", "removed", removed, "error", err)
			return
		}
		e.logger.Info("conversation prefix summarized", "removed", removed)
	}
}

// translateError maps engine failures to the fixed user-visible messages.
func translateError(err error) string {
	var timeoutErr *agent.TimeoutError
	var recursionErr *agent.RecursionError
	switch {
	case model.IsRateLimit(err):
		return msgRateLimit
	case errors.As(err, &timeoutErr), model.IsTimeout(err):
		return msgTimeout
	case errors.As(err, &recursionErr):
		return msgRecursion
	default:
		return msgGeneric
	}
}
