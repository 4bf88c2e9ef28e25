package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/internal/util"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/middleware"
	"github.com/switchboard-dev/switchboard/model"
	"github.com/switchboard-dev/switchboard/tool"
)

// argsPreviewLimit caps the tool argument preview carried in progress events.
const argsPreviewLimit = 120

// Metadata carries execution details alongside the response text.
type Metadata struct {
	// TimedOut marks a specialist result that was cut short by its bound.
	TimedOut bool
	// Steps is the number of model calls the loop made.
	Steps int
	// Duration is the wall time of the whole invocation.
	Duration time.Duration
}

// Result is one completed agent invocation.
type Result struct {
	Response  string
	AgentName string
	// ToolsUsed lists tool names in first-use order, deduplicated.
	ToolsUsed []string
	Metadata  Metadata
}

// RunOptions configure one Run invocation.
type RunOptions struct {
	// Supervisor selects the supervisor policy: the supervisor timeout and
	// a raised *TimeoutError on expiry. The default is the specialist
	// policy: the specialist timeout and a timeout result the calling
	// model can read.
	Supervisor bool
	// Sink receives progress events. Nil drops them.
	Sink *core.Sink
	// History is prior conversation context inserted before the query.
	History []core.Message
	// DatetimeMode overrides the agent's temporal block mode.
	DatetimeMode middleware.DatetimeMode
	// OnCompress observes summarization prefix replacements so callers
	// owning persistent history can mirror them.
	OnCompress func(removed int, summary core.Message)
}

// AsSupervisor runs the agent under the supervisor policy.
func AsSupervisor() func(o *RunOptions) {
	return func(o *RunOptions) { o.Supervisor = true }
}

// AsTool runs the agent under the specialist policy. This is the default;
// the option exists to make call sites explicit.
func AsTool() func(o *RunOptions) {
	return func(o *RunOptions) { o.Supervisor = false }
}

// WithSink streams progress events to sink.
func WithSink(sink *core.Sink) func(o *RunOptions) {
	return func(o *RunOptions) { o.Sink = sink }
}

// WithHistory inserts prior conversation messages before the query.
func WithHistory(history []core.Message) func(o *RunOptions) {
	return func(o *RunOptions) { o.History = history }
}

// WithDatetimeMode overrides the temporal block mode for this invocation.
func WithDatetimeMode(mode middleware.DatetimeMode) func(o *RunOptions) {
	return func(o *RunOptions) { o.DatetimeMode = mode }
}

// WithCompressionObserver forwards summarization prefix replacements.
func WithCompressionObserver(fn func(removed int, summary core.Message)) func(o *RunOptions) {
	return func(o *RunOptions) { o.OnCompress = fn }
}

// Runtime executes one agent's tool loop with recursion and timeout bounds.
// It holds no per-invocation state; nested invocations, such as a specialist
// entered through the supervisor's wrapper tool, each get a fresh step
// counter and their own deadline.
type Runtime struct {
	client   *model.Client
	settings *config.Settings
	base     logging.Logger
	logger   *logging.Scoped
}

// RuntimeOptions configure NewRuntime.
type RuntimeOptions struct {
	Logger logging.Logger
}

// NewRuntime wires a runtime over the shared model client and settings.
func NewRuntime(client *model.Client, settings *config.Settings, optFns ...func(o *RuntimeOptions)) *Runtime {
	opts := RuntimeOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runtime{
		client:   client,
		settings: settings,
		base:     opts.Logger,
		logger:   logging.NewScoped(opts.Logger).WithComponent("agent_runtime"),
	}
}

// Run executes the agent's tool loop for one query.
//
// The invocation is bounded by the role timeout. A specialist that runs out
// of time returns a Result whose Response says so, with Metadata.TimedOut
// set and no error, so the supervisor's model can recover in text. A
// supervisor that runs out of time raises *TimeoutError. Exceeding the
// recursion limit raises *RecursionError in both roles.
func (r *Runtime) Run(ctx context.Context, ag *Agent, query string, optFns ...func(o *RunOptions)) (*Result, error) {
	var opts RunOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if ag == nil {
		return nil, fmt.Errorf("cannot run a nil agent")
	}

	logger := r.logger.WithAgent(ag.Name)
	timeout := r.timeoutFor(ag, opts.Supervisor)
	limit := r.settings.RecursionLimitFor(ag.Name)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := r.loop(runCtx, ag, query, &opts, logger, limit)
	result.Metadata.Duration = time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			if opts.Supervisor {
				logger.Error("supervisor timed out", "timeout", timeout.String(), "steps", result.Metadata.Steps)
				return nil, &TimeoutError{Agent: ag.Name, Timeout: timeout}
			}
			logger.Warn("specialist timed out, returning recoverable result",
				"timeout", timeout.String(), "steps", result.Metadata.Steps)
			result.Response = fmt.Sprintf("Agent '%s' timed out after %gs", ag.Name, timeout.Seconds())
			result.Metadata.TimedOut = true
			return result, nil
		}
		return nil, err
	}

	logger.Debug("agent run completed",
		"steps", result.Metadata.Steps, "tools_used", len(result.ToolsUsed),
		"duration", result.Metadata.Duration.String())
	return result, nil
}

// loop is the model-call / tool-execution cycle. The returned Result is
// never nil so callers can salvage partial tool usage after an error.
func (r *Runtime) loop(ctx context.Context, ag *Agent, query string, opts *RunOptions, logger *logging.Scoped, limit int) (*Result, error) {
	result := &Result{AgentName: ag.Name}

	handler := r.chainFor(ag, opts)
	toolIndex := make(map[string]*tool.Tool, len(ag.Tools))
	for _, t := range ag.Tools {
		if t != nil {
			toolIndex[t.Name] = t
		}
	}

	messages := make([]core.Message, 0, len(opts.History)+1)
	messages = append(messages, opts.History...)
	messages = append(messages, core.NewUserMessage(query))

	req := &model.Request{
		System:          r.systemPromptFor(ag, opts),
		Messages:        messages,
		Tools:           ag.Tools,
		Model:           r.settings.ModelFor(ag.Name),
		Temperature:     r.settings.LLMTemperature,
		ReasoningEffort: r.settings.LLMReasoningEffort,
		Timeout:         r.settings.LLMRequestTimeout.Duration(),
	}

	emit(ctx, opts.Sink, core.ProgressText{Source: ag.Name, Text: "processing query"})

	for {
		res, err := handler(ctx, req)
		if err != nil {
			return result, err
		}
		result.Metadata.Steps++

		msg := res.Message
		ensureToolCallIDs(&msg)
		calls := msg.ToolCalls()
		if len(calls) == 0 {
			result.Response = msg.Text()
			return result, nil
		}

		req.Messages = append(req.Messages, msg)
		req.Messages = append(req.Messages, r.executeCalls(ctx, ag, calls, toolIndex, opts.Sink, logger)...)
		for _, call := range calls {
			result.ToolsUsed = appendUnique(result.ToolsUsed, call.Name)
		}

		if result.Metadata.Steps > limit {
			return result, &RecursionError{Agent: ag.Name, Limit: limit}
		}
	}
}

// executeCalls runs every tool call of one assistant message concurrently
// and returns the Tool messages in originating call order. Handlers receive
// only their own arguments; they must not share mutable state.
func (r *Runtime) executeCalls(ctx context.Context, ag *Agent, calls []core.ToolCall, tools map[string]*tool.Tool, sink *core.Sink, logger *logging.Scoped) []core.Message {
	results := make([]core.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			results[i] = r.executeCall(ctx, ag, call, tools, sink, logger)
		}(i, call)
	}
	wg.Wait()
	return results
}

// executeCall resolves and runs one tool call. Failures of any shape come
// back as an ERROR string in the Tool message, never as an error, so the
// model can retry or apologize.
func (r *Runtime) executeCall(ctx context.Context, ag *Agent, call core.ToolCall, tools map[string]*tool.Tool, sink *core.Sink, logger *logging.Scoped) core.Message {
	emit(ctx, sink, core.ToolCallStarted{
		Agent:       ag.Name,
		Tool:        call.Name,
		ArgsPreview: util.Truncate(call.Arguments, argsPreviewLimit),
	})

	content, err := r.invokeTool(ctx, call, tools, logger)
	if err != nil {
		content = "ERROR: " + err.Error()
	}

	emit(ctx, sink, core.ToolCallFinished{Agent: ag.Name, Tool: call.Name, OK: err == nil})
	return core.NewToolMessage(core.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    content,
	})
}

func (r *Runtime) invokeTool(ctx context.Context, call core.ToolCall, tools map[string]*tool.Tool, logger *logging.Scoped) (string, error) {
	t, ok := tools[call.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("invalid arguments for tool %q: %v", call.Name, err)
		}
	}

	start := time.Now()
	content, err := t.Call(ctx, args)
	logger.LogToolCall(call.Name, time.Since(start), err)
	return content, err
}

// chainFor assembles the engine-mandated middleware order around the model
// call: datetime, knowledge instructions, the agent's own middlewares,
// summarization when enabled, prompt debugging innermost when enabled.
func (r *Runtime) chainFor(ag *Agent, opts *RunOptions) middleware.Handler {
	final := func(ctx context.Context, req *model.Request) (*model.Result, error) {
		return r.client.Invoke(ctx, *req)
	}

	mws := []middleware.Middleware{
		middleware.FromHook(middleware.NewDatetimeContext(r.datetimeModeFor(ag, opts))),
		middleware.FromHook(ag.instructionsMiddleware(r.base)),
	}
	mws = append(mws, ag.Middleware...)
	if r.settings.SummarizationEnabled {
		mws = append(mws, middleware.NewSummarization(r.client, func(o *middleware.SummarizationOptions) {
			o.TriggerTokens = r.settings.SummarizationTriggerTokens
			o.KeepMessages = r.settings.SummarizationKeepMessages
			o.Model = r.settings.ModelFor(ag.Name)
			o.OnCompress = opts.OnCompress
			o.Logger = r.base
		}))
	}
	if r.settings.Debug {
		mws = append(mws, middleware.NewPromptDebug(r.base, func(o *middleware.PromptDebugOptions) {
			o.MaxLength = r.settings.DebugPromptMaxLength
			o.ShowResponse = r.settings.DebugShowResponse
		}))
	}
	return middleware.Chain(final, mws...)
}

// systemPromptFor composes the agent's base system prompt. The supervisor's
// capabilities field already carries the fully composed prompt from the
// builder; specialists get their capabilities plus the planning block.
func (r *Runtime) systemPromptFor(ag *Agent, opts *RunOptions) string {
	if opts.Supervisor {
		return ag.Capabilities
	}
	return ag.Capabilities + "\n\n" + PlanningPrompt
}

func (r *Runtime) timeoutFor(ag *Agent, supervisor bool) time.Duration {
	if supervisor {
		return r.settings.SupervisorTimeout.Duration()
	}
	return r.settings.SpecialistTimeoutFor(ag.Name)
}

func (r *Runtime) datetimeModeFor(ag *Agent, opts *RunOptions) middleware.DatetimeMode {
	if opts.DatetimeMode != "" {
		return opts.DatetimeMode
	}
	if ag.DatetimeMode != "" {
		return ag.DatetimeMode
	}
	if s := r.settings.DatetimeModeFor(ag.Name); s != "" {
		return middleware.ParseDatetimeMode(s)
	}
	if opts.Supervisor {
		return middleware.DatetimeFull
	}
	return middleware.DatetimeMinimal
}

// ensureToolCallIDs fills provider-omitted call ids so tool results can be
// paired with their calls.
func ensureToolCallIDs(msg *core.Message) {
	for i, part := range msg.Parts {
		if p, ok := part.(core.ToolCallPart); ok && p.ToolCall.ID == "" {
			p.ToolCall.ID = "call_" + uuid.NewString()
			msg.Parts[i] = p
		}
	}
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func emit(ctx context.Context, sink *core.Sink, ev core.Event) {
	// A nil sink drops events; a closed sink is shutdown, not a failure.
	_ = sink.Send(ctx, ev)
}
